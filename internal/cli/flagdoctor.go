package cli

// validateFlags centralizes flag combinations that make no sense together.
func validateFlags(globals *Globals) error {
	if globals == nil {
		return nil
	}
	if globals.Format != "ndjson" && globals.Format != "text" {
		return outputErrorCommon(globals, "INVALID_FLAGS", "unknown output format "+globals.Format, "use --format ndjson or --format text")
	}
	// quiet hides exactly what verbose asks for
	if globals.Quiet && globals.Verbose {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--quiet cannot be combined with --verbose", "drop one of them")
	}
	return nil
}
