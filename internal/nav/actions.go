package nav

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
)

// Actions performs the openaction side effects that leave the browser
// process. Stubbed in tests.
type Actions interface {
	OpenTerminal(command string) error
	OpenURL(url string) error
	Other(entry map[string]any)
}

// terminalCandidates are tried in order when spawning a terminal.
var terminalCandidates = [][]string{
	{"x-terminal-emulator", "-e"},
	{"gnome-terminal", "--"},
	{"konsole", "-e"},
	{"xterm", "-e"},
}

// SystemActions dispatches to the desktop environment.
type SystemActions struct{}

func NewSystemActions() *SystemActions { return &SystemActions{} }

// OpenTerminal copies the command to the clipboard, then spawns the first
// available terminal emulator running it. The clipboard copy happens even
// if no emulator is found so the user can paste it somewhere themselves.
func (SystemActions) OpenTerminal(command string) error {
	if err := clipboard.WriteAll(command); err != nil {
		L_debug("clipboard write failed", "error", err)
	}
	for _, candidate := range terminalCandidates {
		if _, err := exec.LookPath(candidate[0]); err != nil {
			continue
		}
		args := append(candidate[1:], "bash", "-lc", command)
		cmd := exec.Command(candidate[0], args...)
		if err := cmd.Start(); err != nil {
			continue
		}
		go cmd.Wait()
		return nil
	}
	return fmt.Errorf("no terminal emulator found")
}

// OpenURL hands the URL to the system browser.
func (SystemActions) OpenURL(url string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	cmd := exec.Command(opener, url)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// Other logs unrecognized actions; there is nothing sensible to run.
func (SystemActions) Other(entry map[string]any) {
	L_debug("unhandled action", "entry", entry)
}
