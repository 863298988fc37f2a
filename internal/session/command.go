package session

import "strings"

type CommandKind int

const (
	CommandHelp CommandKind = iota
	CommandStart
	CommandPractice
	CommandQuit
	CommandList
	CommandUnknown
)

// Command is a parsed chat command. Exam is empty when none was given.
type Command struct {
	Kind CommandKind
	Exam string
	Arg  string
}

// ParseCommand recognizes "<prefix> start|practice [exam]", "<prefix> quit"
// and "<prefix> list". ok is false when text is not addressed to the bot, in
// which case it may be an answer.
func ParseCommand(prefix, text string) (cmd Command, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], prefix) {
		return Command{}, false
	}
	if len(fields) == 1 {
		return Command{Kind: CommandHelp}, true
	}

	sub := strings.ToLower(fields[1])
	var name string
	if len(fields) > 2 {
		name = strings.ToLower(fields[2])
	}

	switch sub {
	case "start":
		return Command{Kind: CommandStart, Exam: name}, true
	case "practice":
		return Command{Kind: CommandPractice, Exam: name}, true
	case "quit":
		return Command{Kind: CommandQuit}, true
	case "list":
		return Command{Kind: CommandList}, true
	default:
		return Command{Kind: CommandUnknown, Arg: fields[1]}, true
	}
}
