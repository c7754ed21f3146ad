package cmd

import (
	"fmt"

	"github.com/Des1red/clihelp"
)

func printHelp() {
	fmt.Println("nxsetup - install or remove the Prometheus Node Exporter as a systemd service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  nxsetup [command] [flags]")
	fmt.Println()

	fmt.Println("Commands:")
	clihelp.Print(
		clihelp.F("install", "", "Install node_exporter (default, replaces an existing install)"),
		clihelp.F("remove", "", "Remove node_exporter, reading user/group/port from the unit file"),
		clihelp.F("doctor", "", "Report platform, tools, firewall and current install"),
		clihelp.F("history", "", "Show past install and remove runs"),
		clihelp.F("help", "", "Show this help"),
	)
	fmt.Println()

	fmt.Println("Service:")
	clihelp.Print(
		clihelp.F("--user, -u", "name", "Service user (default node_exporter)"),
		clihelp.F("--group, -g", "name", "Service group (default: same as user)"),
		clihelp.F("--port, -p", "port", "Listen port (default 9100)"),
		clihelp.F("--service-manager", "string", "systemctl | dbus"),
		clihelp.F("--textfile-dir", "path", "Enable the textfile collector and write install metrics"),
	)
	fmt.Println()

	fmt.Println("General:")
	clihelp.Print(
		clihelp.F("--config", "path", "YAML config file (default /etc/nxsetup/config.yaml)"),
		clihelp.F("--yes, -y", "", "Answer yes to every prompt"),
		clihelp.F("--limit", "n", "Entries shown by history (0 for all)"),
		clihelp.F("--log-level", "level", "debug | info | warn | error"),
	)
	fmt.Println()

	fmt.Println("Notes:")
	fmt.Println("  • install and remove require root")
	fmt.Println("  • only linux-amd64 hosts are supported")
	fmt.Println("  • without --yes, prompts are answered no when stdin is not a terminal")
}
