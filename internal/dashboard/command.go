package dashboard

import "strings"

// CommandKind identifies a parsed input line
type CommandKind int

const (
	// CommandActivate is the empty line: toggle the selected widget
	CommandActivate CommandKind = iota
	CommandExit
	CommandSet
	CommandToggle
	CommandNext
	CommandPrevious
	CommandHelp
	CommandUnknown
)

// Command is one parsed input line
type Command struct {
	Kind CommandKind

	// Arg is the toggle target, or the whole line for CommandUnknown
	Arg string

	// Set arguments
	Key      string
	Value    string
	HasValue bool
}

// ParseCommand parses a submitted input line. Keywords are case-sensitive.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return Command{Kind: CommandActivate}
	case line == "exit":
		return Command{Kind: CommandExit}
	case line == "set" || strings.HasPrefix(line, "set "):
		cmd := Command{Kind: CommandSet}
		setting := strings.TrimSpace(strings.TrimPrefix(line, "set"))
		if key, value, ok := strings.Cut(setting, "="); ok {
			cmd.Key = strings.TrimSpace(key)
			cmd.Value = strings.TrimSpace(value)
			cmd.HasValue = true
		} else {
			cmd.Key = setting
		}
		return cmd
	case line == "toggle" || strings.HasPrefix(line, "toggle "):
		return Command{Kind: CommandToggle, Arg: strings.TrimSpace(strings.TrimPrefix(line, "toggle"))}
	case line == "n" || line == "next":
		return Command{Kind: CommandNext}
	case line == "p" || line == "prev" || line == "previous":
		return Command{Kind: CommandPrevious}
	case line == "help":
		return Command{Kind: CommandHelp}
	}
	return Command{Kind: CommandUnknown, Arg: line}
}

// Action is a request the dashboard cannot satisfy itself and hands to the
// session loop
type Action interface {
	action()
}

// ExitAction ends the session
type ExitAction struct{}

// SettingAction changes a terminal setting, e.g. "set cols=132"
type SettingAction struct {
	Setting  string
	Value    string
	HasValue bool
}

func (ExitAction) action()    {}
func (SettingAction) action() {}
