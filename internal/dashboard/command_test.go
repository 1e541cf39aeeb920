package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{Kind: CommandActivate}},
		{"   ", Command{Kind: CommandActivate}},
		{"exit", Command{Kind: CommandExit}},
		{" exit ", Command{Kind: CommandExit}},
		{"EXIT", Command{Kind: CommandUnknown, Arg: "EXIT"}},
		{"set", Command{Kind: CommandSet}},
		{"set cols=80", Command{Kind: CommandSet, Key: "cols", Value: "80", HasValue: true}},
		{"set  cols = 132 ", Command{Kind: CommandSet, Key: "cols", Value: "132", HasValue: true}},
		{"set verbose", Command{Kind: CommandSet, Key: "verbose"}},
		{"set cols=", Command{Kind: CommandSet, Key: "cols", HasValue: true}},
		{"settings", Command{Kind: CommandUnknown, Arg: "settings"}},
		{"toggle", Command{Kind: CommandToggle}},
		{"toggle ", Command{Kind: CommandToggle}},
		{"toggle Kitchen Light", Command{Kind: CommandToggle, Arg: "Kitchen Light"}},
		{"n", Command{Kind: CommandNext}},
		{"next", Command{Kind: CommandNext}},
		{"p", Command{Kind: CommandPrevious}},
		{"prev", Command{Kind: CommandPrevious}},
		{"previous", Command{Kind: CommandPrevious}},
		{"help", Command{Kind: CommandHelp}},
		{"frobnicate now", Command{Kind: CommandUnknown, Arg: "frobnicate now"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.line))
		})
	}
}
