package supervisor

import (
	"strings"

	"github.com/richardxx/ojtester/internal/resuse"
)

// Program is an executable together with its fixed leading arguments.
type Program struct {
	Path string
	Args []string
}

func (p Program) String() string {
	if len(p.Args) == 0 {
		return p.Path
	}
	return p.Path + " " + strings.Join(p.Args, " ")
}

// Spec describes one supervised run. Empty stream paths inherit the
// supervisor's own standard streams. A nil Limits disables both checks.
type Spec struct {
	Program Program
	Args    []string

	Stdin  string
	Stdout string
	Stderr string

	Limits *resuse.Limits
}

func (s Spec) argv() []string {
	argv := make([]string, 0, 1+len(s.Program.Args)+len(s.Args))
	argv = append(argv, s.Program.Path)
	argv = append(argv, s.Program.Args...)
	return append(argv, s.Args...)
}
