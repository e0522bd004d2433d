// Package menu implements the hierarchical terminal menu and the prompt
// helpers available to tool actions.
//
// Navigation: digits descend into submenus or run a tool, "b" goes back one
// level, "m" returns to the main menu and "0" exits. Inside a tool prompt,
// "q" cancels the tool and returns to the menu.
package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// ErrAborted reports that the user cancelled a prompt with "q".
var ErrAborted = errors.New("aborted by user")

// Action is the handler of a leaf item. It runs with a Session for terminal
// interaction and returns to the menu when done.
type Action func(s *Session) error

// Item is one entry of the menu tree, either a submenu with Children or a
// leaf with Run.
type Item struct {
	Title    string
	Children []*Item
	Run      Action
}

// Sub builds a submenu item.
func Sub(title string, children ...*Item) *Item {
	return &Item{Title: title, Children: children}
}

// Leaf builds an action item.
func Leaf(title string, run Action) *Item {
	return &Item{Title: title, Run: run}
}

// Menu drives the navigation loop over a tree of items.
type Menu struct {
	root    *Item
	session *Session
}

// New creates a menu over the given streams.
func New(root *Item, in io.Reader, out io.Writer) *Menu {
	return &Menu{
		root: root,
		session: &Session{
			in:  bufio.NewScanner(in),
			out: out,
		},
	}
}

// Run processes input until the user exits or the input stream ends.
func (m *Menu) Run() error {
	stack := []*Item{m.root}

	for {
		current := stack[len(stack)-1]
		m.render(current)

		line, err := m.session.readLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		choice := strings.ToLower(strings.TrimSpace(line))
		switch choice {
		case "":
			continue
		case "0":
			fmt.Fprintln(m.session.out, "Goodbye!")
			return nil
		case "b":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		case "m":
			stack = stack[:1]
			continue
		}

		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(current.Children) {
			fmt.Fprintf(m.session.out, "Invalid choice %q\n", strings.TrimSpace(line))
			continue
		}

		child := current.Children[idx-1]
		if child.Run == nil {
			stack = append(stack, child)
			continue
		}

		m.runAction(child)
	}
}

// runAction executes a leaf action and reports its outcome.
func (m *Menu) runAction(item *Item) {
	fmt.Fprintf(m.session.out, "\n--- %s ---\n", item.Title)

	err := item.Run(m.session)
	switch {
	case errors.Is(err, ErrAborted):
		fmt.Fprintln(m.session.out, "Cancelled.")
	case err != nil:
		traceID := applog.ErrorWithTraceID(applog.Fields{
			"tool":  item.Title,
			"error": err.Error(),
		}, "tool failed")
		fmt.Fprintf(m.session.out, "Error: %v (trace %s)\n", err, traceID)
	}

	m.session.pause()
}

func (m *Menu) render(current *Item) {
	out := m.session.out

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 44))
	fmt.Fprintf(out, "  %s\n", current.Title)
	fmt.Fprintln(out, strings.Repeat("=", 44))
	for i, child := range current.Children {
		fmt.Fprintf(out, "  %d) %s\n", i+1, child.Title)
	}
	fmt.Fprintln(out, strings.Repeat("-", 44))
	fmt.Fprintln(out, "  b) back   m) main menu   0) exit")
	fmt.Fprint(out, "Select an option: ")
}
