package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"phosphor/models"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okColor   = color.New(color.FgGreen).SprintFunc()
	errColor  = color.New(color.FgRed).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
	dimColor  = color.New(color.FgHiBlack).SprintFunc()
)

// Shell is the interactive CLI for a running Phosphor server
type Shell struct {
	rl      *readline.Instance
	out     io.Writer
	running  bool
	client   *Client
	profiles *Profiles
}

// NewShell connects to serverURL and prepares the readline prompt
func NewShell(serverURL string) (*Shell, error) {
	client := NewClient(serverURL)

	// Test connectivity
	if _, err := client.HealthCheck(); err != nil {
		return nil, fmt.Errorf("cannot connect to server: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(client, os.Stdout)
	s.rl = rl
	if profiles, err := loadUserProfiles(); err == nil {
		s.profiles = profiles
	}
	return s, nil
}

func newShell(client *Client, out io.Writer) *Shell {
	return &Shell{out: out, running: true, client: client}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("list"),
	readline.PcItem("add"),
	readline.PcItem("edit"),
	readline.PcItem("delete"),
	readline.PcItem("move"),
	readline.PcItem("order"),
	readline.PcItem("settings"),
	readline.PcItem("set",
		readline.PcItem("language"),
		readline.PcItem("icons"),
		readline.PcItem("title"),
	),
	readline.PcItem("profile",
		readline.PcItem("list"),
		readline.PcItem("add"),
		readline.PcItem("use"),
		readline.PcItem("remove"),
	),
	readline.PcItem("health"),
	readline.PcItem("version"),
	readline.PcItem("clear"),
	readline.PcItem("exit"),
)

// Start runs the CLI loop
func (s *Shell) Start() {
	defer s.rl.Close()
	s.printWelcome()

	for s.running {
		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(s.out, "\n"+warnColor("⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully."))
				continue
			}
			// EOF or other error; exit
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		s.handleCommand(input)
	}
}

func (s *Shell) printWelcome() {
	fmt.Fprint(s.out, renderBanner("Phosphor - CLI Mode", bannerDefaultWidth))
	fmt.Fprintf(s.out, "\nConnected to: %s\n", s.client.baseURL)
	fmt.Fprintln(s.out, "Type 'help' for available commands")
}

// handleCommand routes user commands
func (s *Shell) handleCommand(input string) {
	parts, err := splitArgs(input)
	if err != nil {
		s.fail(err)
		return
	}
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		s.showHelp()
	case "list", "ls":
		s.listApplications()
	case "add", "create":
		s.addApplication(args)
	case "edit", "rename":
		s.editApplication(args)
	case "delete", "del", "rm":
		s.deleteApplication(args)
	case "move", "mv":
		s.moveApplication(args)
	case "order":
		s.orderApplications(args)
	case "settings":
		s.showSettings()
	case "set":
		s.setSetting(args)
	case "profile", "profiles":
		s.manageProfiles(args)
	case "health":
		s.showHealth()
	case "version":
		s.showVersion()
	case "clear":
		fmt.Fprint(s.out, "\033[H\033[2J")
	case "exit", "quit", "q":
		fmt.Fprintln(s.out, "\nGoodbye!")
		s.running = false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

func (s *Shell) fail(err error) {
	fmt.Fprintf(s.out, "%s %v\n", errColor("✗ Error:"), err)
}

func (s *Shell) done(format string, a ...interface{}) {
	fmt.Fprintf(s.out, "%s %s\n", okColor("✓"), fmt.Sprintf(format, a...))
}

func (s *Shell) showHelp() {
	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, renderBanner("Available Commands", bannerDefaultWidth))
	fmt.Fprintln(s.out)

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"APPLICATIONS:", ""},
		{"list", "List applications in display order"},
		{"add <name> <url> [icon]", "Add an application, optionally uploading an icon file"},
		{"edit <app> <name> <url> [icon]", "Replace name and URL, optionally the icon"},
		{"delete <app>", "Delete an application"},
		{"move <app> <position>", "Move an application to a 1-based position"},
		{"order <app> <app> ...", "Set the full display order"},
		{"", ""},
		{"SETTINGS:", ""},
		{"settings", "Show settings"},
		{"set language <pt|en|es>", "Change the UI language"},
		{"set icons <on|off>", "Toggle Phosphor icons"},
		{"set title <text>", "Change the dashboard title"},
		{"", ""},
		{"PROFILES:", ""},
		{"profile list", "List saved servers"},
		{"profile add <name> <url> [note]", "Save a server"},
		{"profile use <name>", "Make a saved server the default"},
		{"profile remove <name>", "Forget a saved server"},
		{"", ""},
		{"SYSTEM:", ""},
		{"health", "Show server health"},
		{"version", "Show server version"},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if cmd[0] != "" {
			fmt.Fprintf(s.out, "  %-32s %s\n", cmd[0], cmd[1])
		} else {
			fmt.Fprintln(s.out)
		}
	}
	fmt.Fprintln(s.out, dimColor("\n<app> is a list position (#), a full id or a unique id prefix. Quote names with spaces."))
}

func (s *Shell) listApplications() {
	apps, err := s.client.ListApplications()
	if err != nil {
		s.fail(err)
		return
	}
	if len(apps) == 0 {
		fmt.Fprintln(s.out, "No applications configured.")
		return
	}

	table := tablewriter.NewWriter(s.out)
	table.Header("#", "ID", "Name", "URL", "Icon")
	for i, app := range apps {
		icon := "-"
		if name := app.ImageName(); name != "" {
			icon = truncate(name, 16)
		}
		table.Append([]string{strconv.Itoa(i + 1), app.ID, truncate(app.Name, 24), truncate(app.URL, 40), icon})
	}
	table.Render()
}

func (s *Shell) addApplication(args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(s.out, "Usage: add <name> <url> [icon]")
		return
	}
	icon := ""
	if len(args) == 3 {
		icon = args[2]
	}

	app, err := s.client.CreateApplication(args[0], args[1], icon)
	if err != nil {
		s.fail(err)
		return
	}
	s.done("Added %s (%s)", app.Name, app.ID)
}

func (s *Shell) editApplication(args []string) {
	if len(args) < 3 || len(args) > 4 {
		fmt.Fprintln(s.out, "Usage: edit <app> <name> <url> [icon]")
		return
	}
	id, err := s.resolve(args[0])
	if err != nil {
		s.fail(err)
		return
	}
	icon := ""
	if len(args) == 4 {
		icon = args[3]
	}

	app, err := s.client.UpdateApplication(id, args[1], args[2], icon)
	if err != nil {
		s.fail(err)
		return
	}
	s.done("Updated %s", app.Name)
}

func (s *Shell) deleteApplication(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: delete <app>")
		return
	}
	id, err := s.resolve(args[0])
	if err != nil {
		s.fail(err)
		return
	}

	if s.rl != nil {
		answer := s.readInput(fmt.Sprintf("Delete %s? (y/N)", id), "N")
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(s.out, "Deletion cancelled.")
			return
		}
	}

	if err := s.client.DeleteApplication(id); err != nil {
		s.fail(err)
		return
	}
	s.done("Deleted %s", id)
}

func (s *Shell) moveApplication(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: move <app> <position>")
		return
	}
	apps, err := s.client.ListApplications()
	if err != nil {
		s.fail(err)
		return
	}
	id, err := resolveID(apps, args[0])
	if err != nil {
		s.fail(err)
		return
	}
	position, err := strconv.Atoi(args[1])
	if err != nil || position < 1 || position > len(apps) {
		s.fail(fmt.Errorf("position must be between 1 and %d", len(apps)))
		return
	}

	ids := moveID(idsOf(apps), id, position-1)
	if err := s.client.ReorderApplications(ids); err != nil {
		s.fail(err)
		return
	}
	s.done("Moved %s to position %d", id, position)
}

func (s *Shell) orderApplications(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: order <app> <app> ...")
		return
	}
	apps, err := s.client.ListApplications()
	if err != nil {
		s.fail(err)
		return
	}

	ids := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, ref := range args {
		id, err := resolveID(apps, ref)
		if err != nil {
			s.fail(err)
			return
		}
		if seen[id] {
			s.fail(fmt.Errorf("%s listed twice", ref))
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < len(apps) {
		fmt.Fprintln(s.out, warnColor("⚠ Applications not listed keep their current order value."))
	}

	if err := s.client.ReorderApplications(ids); err != nil {
		s.fail(err)
		return
	}
	s.done("Reordered %d application(s)", len(ids))
}

func (s *Shell) showSettings() {
	settings, err := s.client.GetSettings()
	if err != nil {
		s.fail(err)
		return
	}
	title := "-"
	if settings.CustomTitle != nil {
		title = *settings.CustomTitle
	}
	fmt.Fprintf(s.out, "  %-16s %s\n", "Language:", settings.Language)
	fmt.Fprintf(s.out, "  %-16s %t\n", "Phosphor icons:", settings.PhosphorIcons)
	fmt.Fprintf(s.out, "  %-16s %s\n", "Title:", title)
	fmt.Fprintf(s.out, "  %-16s %s\n", "Updated:", settings.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}

func (s *Shell) setSetting(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: set <language|icons|title> <value>")
		return
	}

	var upd models.SettingsUpdate
	value := strings.Join(args[1:], " ")
	switch strings.ToLower(args[0]) {
	case "language", "lang":
		upd.Language = &value
	case "icons":
		on, err := parseToggle(value)
		if err != nil {
			s.fail(err)
			return
		}
		upd.PhosphorIcons = &on
	case "title":
		upd.CustomTitle = &value
	default:
		fmt.Fprintf(s.out, "Unknown setting: %s\n", args[0])
		return
	}

	if _, err := s.client.UpdateSettings(upd); err != nil {
		s.fail(err)
		return
	}
	s.done("Settings updated")
}

func (s *Shell) manageProfiles(args []string) {
	if s.profiles == nil {
		s.fail(errors.New("profile file is not available"))
		return
	}
	if len(args) == 0 {
		args = []string{"list"}
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "list", "ls":
		table := tablewriter.NewWriter(s.out)
		table.Header("", "Name", "URL", "Note")
		for _, name := range s.profiles.Names() {
			mark := ""
			if name == s.profiles.Default {
				mark = "*"
			}
			p := s.profiles.Servers[name]
			table.Append([]string{mark, name, p.URL, p.Note})
		}
		table.Render()
		return
	case "add":
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: profile add <name> <url> [note]")
			return
		}
		err = s.profiles.Put(args[1], args[2], strings.Join(args[3:], " "))
	case "use":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "Usage: profile use <name>")
			return
		}
		err = s.profiles.Use(args[1])
	case "remove", "rm":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "Usage: profile remove <name>")
			return
		}
		err = s.profiles.Remove(args[1])
	default:
		fmt.Fprintf(s.out, "Unknown profile command: %s\n", args[0])
		return
	}
	if err != nil {
		s.fail(err)
		return
	}
	s.done("Profiles saved")
}

func (s *Shell) showHealth() {
	health, err := s.client.HealthCheck()
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Status: %s (backend: %s, at %s)\n", okColor(health.Status), health.Backend, health.Timestamp)
}

func (s *Shell) showVersion() {
	info, err := s.client.Version()
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Server version %s (commit %s, built %s)\n", info.Version, info.CommitHash, info.BuildTime)
}

func (s *Shell) resolve(ref string) (string, error) {
	apps, err := s.client.ListApplications()
	if err != nil {
		return "", err
	}
	return resolveID(apps, ref)
}

// readInput reads user input with an optional default
func (s *Shell) readInput(prompt, defaultValue string) string {
	if defaultValue != "" {
		s.rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, defaultValue))
	} else {
		s.rl.SetPrompt(fmt.Sprintf("%s: ", prompt))
	}

	line, err := s.rl.Readline()
	s.rl.SetPrompt("> ") // Restore default prompt

	if err != nil {
		return defaultValue
	}

	input := strings.TrimSpace(line)
	if input == "" {
		return defaultValue
	}
	return input
}
