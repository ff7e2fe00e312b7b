package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/samber/lo"
)

// CompletionCmd generates shell completions
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)"`
}

// completionEntry lists what may follow one command path.
type completionEntry struct {
	Path        string // space separated, "" for the root
	Subcommands []string
	Flags       []string
}

// Run executes the completion command. It reads the live kong model so the
// script never drifts from the real flags.
func (c *CompletionCmd) Run(globals *Globals, ctx *kong.Context) error {
	var model *kong.Node
	if ctx != nil && ctx.Model != nil {
		model = ctx.Model.Node
	}
	entries, enums := completionIndex(model)

	var script string
	switch c.Shell {
	case "bash":
		script = bashCompletion(entries, enums)
	case "zsh":
		script = "autoload -U +X bashcompinit && bashcompinit\n" + bashCompletion(entries, enums)
	case "fish":
		script = fishCompletion(entries, enums)
	default:
		return fmt.Errorf("unsupported shell: %s", c.Shell)
	}
	_, err := fmt.Fprint(globals.Stdout, script)
	return err
}

func completionIndex(model *kong.Node) ([]completionEntry, map[string][]string) {
	enums := map[string][]string{}
	if model == nil {
		return []completionEntry{{}}, enums
	}

	var entries []completionEntry
	var walk func(n *kong.Node, path []string)
	walk = func(n *kong.Node, path []string) {
		children := lo.Filter(n.Children, func(child *kong.Node, _ int) bool {
			return child != nil && child.Type == kong.CommandNode && !child.Hidden
		})
		var flags []string
		for _, group := range n.AllFlags(true) {
			for _, f := range group {
				tokens := []string{"--" + f.Name}
				if f.Short != 0 {
					tokens = append(tokens, "-"+string(f.Short))
				}
				flags = append(flags, tokens...)
				if f.Enum != "" {
					values := lo.Compact(lo.Map(strings.Split(f.Enum, ","), func(v string, _ int) string { return strings.TrimSpace(v) }))
					for _, t := range tokens {
						if _, ok := enums[t]; !ok {
							enums[t] = values
						}
					}
				}
			}
		}
		subs := lo.Map(children, func(child *kong.Node, _ int) string { return child.Name })
		slices.Sort(subs)
		flags = lo.Uniq(flags)
		slices.Sort(flags)
		entries = append(entries, completionEntry{Path: strings.Join(path, " "), Subcommands: subs, Flags: flags})

		for _, child := range children {
			walk(child, append(slices.Clone(path), child.Name))
		}
	}
	walk(model, nil)
	return entries, enums
}

func bashCompletion(entries []completionEntry, enums map[string][]string) string {
	var sb strings.Builder
	sb.WriteString(`# lurk bash completion script
# Add to ~/.bashrc:
#   eval "$(lurk completion bash)"

_lurk_completions() {
    local cur prev words cword
    _init_completion || return

    local cmdpath="" i
    for ((i=1; i < cword; i++)); do
        [[ "${words[i]}" == -* ]] && continue
        case "${cmdpath:+${cmdpath} }${words[i]}" in
`)
	for _, e := range entries {
		if e.Path != "" {
			fmt.Fprintf(&sb, "            %q) cmdpath=%q ;;\n", e.Path, e.Path)
		}
	}
	sb.WriteString(`            *) break ;;
        esac
    done

    case "${prev}" in
`)
	tokens := lo.Keys(enums)
	slices.Sort(tokens)
	for _, token := range tokens {
		fmt.Fprintf(&sb, "        %s) COMPREPLY=($(compgen -W %q -- \"${cur}\")); return ;;\n", token, strings.Join(enums[token], " "))
	}
	sb.WriteString(`    esac

    local subcommands="" flags=""
    case "${cmdpath}" in
`)
	for _, e := range entries {
		fmt.Fprintf(&sb, "        %q) subcommands=%q; flags=%q ;;\n", e.Path, strings.Join(e.Subcommands, " "), strings.Join(e.Flags, " "))
	}
	sb.WriteString(`    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=($(compgen -W "${flags}" -- "${cur}"))
    else
        COMPREPLY=($(compgen -W "${subcommands}" -- "${cur}"))
    fi
}

complete -F _lurk_completions lurk
`)
	return sb.String()
}

func fishCompletion(entries []completionEntry, enums map[string][]string) string {
	var sb strings.Builder
	sb.WriteString("# lurk fish completion script\n# Save to ~/.config/fish/completions/lurk.fish\n\n")
	for _, e := range entries {
		cond := "__fish_use_subcommand"
		if e.Path != "" {
			parts := strings.Fields(e.Path)
			cond = "__fish_seen_subcommand_from " + parts[len(parts)-1]
		}
		for _, sub := range e.Subcommands {
			fmt.Fprintf(&sb, "complete -c lurk -f -n '%s' -a %s\n", cond, sub)
		}
	}
	rootFlags := map[string]bool{}
	for _, e := range entries {
		cond := ""
		if e.Path != "" {
			parts := strings.Fields(e.Path)
			cond = fmt.Sprintf(" -n '__fish_seen_subcommand_from %s'", parts[len(parts)-1])
		}
		for _, flag := range e.Flags {
			if !strings.HasPrefix(flag, "--") || (e.Path != "" && rootFlags[flag]) {
				continue
			}
			if e.Path == "" {
				rootFlags[flag] = true
			}
			line := fmt.Sprintf("complete -c lurk%s -l %s", cond, strings.TrimPrefix(flag, "--"))
			if values, ok := enums[flag]; ok {
				line += fmt.Sprintf(" -x -a '%s'", strings.Join(values, " "))
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}
