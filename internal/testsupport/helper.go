package testsupport

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"testing"

	"github.com/spf13/pflag"
)

// HelperDaemonEnv switches a test binary into fake daemon mode. Tests set it
// before spawning os.Executable() so the child serves instead of running tests.
const HelperDaemonEnv = "OSQUERYCTL_HELPER_DAEMON"

const (
	// HelperServe binds the socket and answers queries.
	HelperServe = "serve"
	// HelperStall starts but never binds the socket.
	HelperStall = "stall"
)

// IsHelperDaemon reports whether the current process was started as a fake daemon.
func IsHelperDaemon() bool {
	return os.Getenv(HelperDaemonEnv) != ""
}

// UseHelperDaemon arranges for children spawned during the test to run in the
// given helper mode and returns the executable to spawn.
func UseHelperDaemon(t testing.TB, mode string) string {
	t.Helper()

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve test executable: %v", err)
	}
	t.Setenv(HelperDaemonEnv, mode)
	return exe
}

// RunHelperDaemon parses the osqueryd flag set from args and serves until
// signalled. It returns the process exit code.
func RunHelperDaemon(args []string) int {
	flags := pflag.NewFlagSet("osqueryd", pflag.ContinueOnError)
	socket := flags.String("extensions_socket", "", "extension socket path")
	flags.Bool("disable_database", false, "")
	flags.Bool("disable_watchdog", false, "")
	flags.Bool("disable_logging", false, "")
	flags.Bool("ephemeral", false, "")
	flags.String("config_path", "", "")
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *socket == "" {
		fmt.Fprintln(os.Stderr, "--extensions_socket is required")
		return 2
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if os.Getenv(HelperDaemonEnv) == HelperStall {
		<-signals
		return 0
	}

	daemon, err := ListenDaemon(*socket)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	<-signals
	daemon.Close()
	return 0
}
