// Package safety classifies every action the agent proposes before it
// runs: shell commands, file writes and deletes, and package operations
// are tiered as safe, moderate, dangerous, or forbidden.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// RiskLevel tiers an operation by the harm it could cause.
type RiskLevel string

const (
	// RiskSafe executes immediately.
	RiskSafe RiskLevel = "safe"
	// RiskModerate executes immediately but is worth explaining.
	RiskModerate RiskLevel = "moderate"
	// RiskDangerous requires explicit confirmation.
	RiskDangerous RiskLevel = "dangerous"
	// RiskForbidden is never allowed.
	RiskForbidden RiskLevel = "forbidden"
)

// RiskCheck is the verdict for one proposed operation.
type RiskCheck struct {
	Level                RiskLevel
	Allowed              bool
	Reason               string
	UserWarning          string
	SafeAlternative      string
	RequiresConfirmation bool
}

// forbiddenRule and friends are the policy tables. They are ordered:
// classification walks forbidden, then dangerous, then moderate, and the
// first match wins.
type forbiddenRule struct {
	pattern string
	reason  string
}

type dangerousRule struct {
	pattern     string
	reason      string
	alternative string
}

type moderateRule struct {
	pattern string
	reason  string
}

// Commands that are always blocked.
var forbiddenRules = []forbiddenRule{
	{`rm\s+(-[rf]+\s+)?/\s*$`, "Deleting the entire system"},
	{`rm\s+-rf\s+/\*`, "Deleting all files on the system"},
	{`mkfs\.`, "Formatting a disk"},
	{`dd\s+.*of=/dev/[hs]d`, "Overwriting disk contents"},
	{`>\s*/dev/sd[a-z]`, "Destroying disk data"},
	{`:\(\)\{\s*:\|:&\s*\};:`, "Fork bomb - crashes the system"},
	{`chmod\s+-R\s+777\s+/`, "Making all system files insecure"},
	{`chown\s+-R\s+.*\s+/\s*$`, "Changing ownership of system files"},
	{`wget.*\|\s*sh`, "Running untrusted code from internet"},
	{`curl.*\|\s*sh`, "Running untrusted code from internet"},
	{`wget.*\|\s*bash`, "Running untrusted code from internet"},
	{`curl.*\|\s*bash`, "Running untrusted code from internet"},
}

// Commands that require explicit confirmation.
var dangerousRules = []dangerousRule{
	{`rm\s+-rf`, "Deleting files permanently", "Move to trash instead?"},
	{`rm\s+-r`, "Deleting folder and contents", "Move to trash instead?"},
	{`rm\s+`, "Deleting files", ""},
	{`chmod\s+777`, "Making files accessible to everyone", ""},
	{`chmod\s+-R`, "Changing permissions on many files", ""},
	{`chown`, "Changing file ownership", ""},
	{`shutdown`, "Shutting down the computer", ""},
	{`reboot`, "Restarting the computer", ""},
	{`systemctl\s+stop`, "Stopping a system service", ""},
	{`systemctl\s+disable`, "Disabling a system service", ""},
	{`apt\s+remove`, "Removing software", ""},
	{`apt\s+purge`, "Completely removing software and settings", ""},
	{`apt-get\s+remove`, "Removing software", ""},
	{`apt-get\s+purge`, "Completely removing software and settings", ""},
	{`dpkg\s+--purge`, "Completely removing software", ""},
	{`kill\s+-9`, "Force stopping a program", ""},
	{`killall`, "Stopping all instances of a program", ""},
	{`mv\s+.*\s+/`, "Moving files to system directories", ""},
	{`cp\s+.*\s+/`, "Copying files to system directories", ""},
	{`>\s*~`, "Overwriting a file in home directory", ""},
	{`passwd`, "Changing password", ""},
	{`sudo\s+su`, "Becoming administrator", ""},
	{`visudo`, "Editing administrator settings", ""},
}

// Commands that should be explained but are generally safe.
var moderateRules = []moderateRule{
	{`apt\s+install`, "Installing software"},
	{`apt\s+update`, "Updating package lists"},
	{`apt\s+upgrade`, "Upgrading installed software"},
	{`apt-get\s+install`, "Installing software"},
	{`pip\s+install`, "Installing Python packages"},
	{`npm\s+install`, "Installing Node.js packages"},
	{`git\s+clone`, "Downloading a code repository"},
	{`wget`, "Downloading a file"},
	{`curl`, "Downloading/sending data"},
	{`mv\s+`, "Moving/renaming files"},
	{`cp\s+`, "Copying files"},
	{`mkdir`, "Creating folders"},
	{`touch`, "Creating empty files"},
	{`nano|vim|vi|emacs`, "Opening text editor"},
}

// criticalPackages must never be removed.
var criticalPackages = []string{"apt", "dpkg", "systemd", "libc", "linux-image", "grub"}

// systemPaths are directories where writes are dangerous.
var systemPaths = []string{
	"/etc", "/usr", "/bin", "/sbin", "/lib", "/boot",
	"/root", "/var", "/opt", "/sys", "/proc", "/dev",
}

// Options customizes a Guard.
type Options struct {
	// ExtraBlockedPatterns are additional forbidden regexes from config.
	// Patterns that fail to compile are skipped.
	ExtraBlockedPatterns []string

	// ExtraDangerousPatterns are additional confirmation-requiring
	// regexes from config. Patterns that fail to compile are skipped.
	ExtraDangerousPatterns []string

	// ConfirmDangerous controls whether dangerous operations require
	// confirmation. Defaults to true via NewGuard.
	ConfirmDangerous bool
}

type compiledForbidden struct {
	re     *regexp.Regexp
	reason string
}

type compiledDangerous struct {
	re          *regexp.Regexp
	reason      string
	alternative string
}

type compiledModerate struct {
	re     *regexp.Regexp
	reason string
}

// Guard classifies proposed operations. Classification is pure: the same
// input always yields the same verdict.
type Guard struct {
	forbidden        []compiledForbidden
	dangerous        []compiledDangerous
	moderate         []compiledModerate
	confirmDangerous bool
}

// NewGuard compiles the policy tables plus any configured extras.
func NewGuard(opts Options) *Guard {
	g := &Guard{confirmDangerous: opts.ConfirmDangerous}

	for _, r := range forbiddenRules {
		g.forbidden = append(g.forbidden, compiledForbidden{
			re:     regexp.MustCompile("(?i)" + r.pattern),
			reason: r.reason,
		})
	}
	for _, p := range opts.ExtraBlockedPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		g.forbidden = append(g.forbidden, compiledForbidden{re: re, reason: "Blocked by configuration"})
	}

	for _, r := range dangerousRules {
		g.dangerous = append(g.dangerous, compiledDangerous{
			re:          regexp.MustCompile("(?i)" + r.pattern),
			reason:      r.reason,
			alternative: r.alternative,
		})
	}
	for _, p := range opts.ExtraDangerousPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		g.dangerous = append(g.dangerous, compiledDangerous{re: re, reason: "Requires confirmation"})
	}

	for _, r := range moderateRules {
		g.moderate = append(g.moderate, compiledModerate{
			re:     regexp.MustCompile("(?i)" + r.pattern),
			reason: r.reason,
		})
	}

	return g
}

// DefaultGuard returns a guard with the built-in tables and
// confirmation enabled.
func DefaultGuard() *Guard {
	return NewGuard(Options{ConfirmDangerous: true})
}

// CheckCommand classifies a shell command. Tiers are checked in order of
// severity and the first match wins.
func (g *Guard) CheckCommand(command string) RiskCheck {
	for _, r := range g.forbidden {
		if r.re.MatchString(command) {
			return RiskCheck{
				Level:   RiskForbidden,
				Allowed: false,
				Reason:  r.reason,
				UserWarning: fmt.Sprintf("I can't do that - it would %s. This action is blocked for your safety.",
					strings.ToLower(r.reason)),
			}
		}
	}

	for _, r := range g.dangerous {
		if r.re.MatchString(command) {
			warning := fmt.Sprintf("This will %s. Are you sure?", strings.ToLower(r.reason))
			if r.alternative != "" {
				warning += " (" + r.alternative + ")"
			}
			return RiskCheck{
				Level:                RiskDangerous,
				Allowed:              true,
				Reason:               r.reason,
				UserWarning:          warning,
				SafeAlternative:      r.alternative,
				RequiresConfirmation: g.confirmDangerous,
			}
		}
	}

	for _, r := range g.moderate {
		if r.re.MatchString(command) {
			return RiskCheck{
				Level:   RiskModerate,
				Allowed: true,
				Reason:  r.reason,
			}
		}
	}

	return RiskCheck{Level: RiskSafe, Allowed: true}
}

// CheckFileWrite classifies a file write by its destination path.
func (g *Guard) CheckFileWrite(path string) RiskCheck {
	for _, sys := range systemPaths {
		if strings.HasPrefix(path, sys) {
			return RiskCheck{
				Level:                RiskDangerous,
				Allowed:              true,
				Reason:               "Writing to system directory",
				UserWarning:          "This will modify a system file. Incorrect changes could affect your computer.",
				RequiresConfirmation: true,
			}
		}
	}

	if strings.Contains(path, "/.config/") || (strings.HasPrefix(path, "/home") && strings.Contains(path, "/.")) {
		return RiskCheck{
			Level:   RiskModerate,
			Allowed: true,
			Reason:  "Writing to configuration file",
		}
	}

	return RiskCheck{Level: RiskSafe, Allowed: true}
}

// CheckFileDelete classifies a file deletion. Deletes always require
// confirmation.
func (g *Guard) CheckFileDelete(path string) RiskCheck {
	return RiskCheck{
		Level:                RiskDangerous,
		Allowed:              true,
		Reason:               "Deleting file",
		UserWarning:          "This will permanently delete the file. A backup will be created just in case.",
		RequiresConfirmation: true,
	}
}

// CheckPackageOperation classifies a package manager action. Removing a
// critical system component is forbidden no matter how the request is
// phrased.
func (g *Guard) CheckPackageOperation(action, pkg string) RiskCheck {
	switch action {
	case "remove":
		lower := strings.ToLower(pkg)
		for _, crit := range criticalPackages {
			if strings.Contains(lower, crit) {
				return RiskCheck{
					Level:       RiskForbidden,
					Allowed:     false,
					Reason:      "Removing critical system component",
					UserWarning: fmt.Sprintf("I can't remove %s - it's essential for your computer to work.", pkg),
				}
			}
		}
		return RiskCheck{
			Level:                RiskDangerous,
			Allowed:              true,
			Reason:               "Removing " + pkg,
			UserWarning:          fmt.Sprintf("This will remove %s from your computer.", pkg),
			RequiresConfirmation: true,
		}

	case "install":
		return RiskCheck{
			Level:   RiskModerate,
			Allowed: true,
			Reason:  "Installing " + pkg,
		}
	}

	return RiskCheck{Level: RiskSafe, Allowed: true}
}

var (
	rmPrefix     = regexp.MustCompile(`^rm\s+`)
	rmFlagsStrip = regexp.MustCompile(`^rm\s+(-[rf]+\s+)?`)
)

// SafeAlternative suggests a less destructive equivalent for a command,
// or "" when there is none.
func (g *Guard) SafeAlternative(command string) string {
	if rmPrefix.MatchString(command) {
		files := rmFlagsStrip.ReplaceAllString(command, "")
		return "gio trash " + files
	}
	if strings.Contains(command, "chmod 777") {
		return strings.ReplaceAll(command, "777", "755")
	}
	return ""
}

// explanations maps command prefixes to plain-language descriptions.
var explanations = []struct {
	re   *regexp.Regexp
	text string
}{
	{regexp.MustCompile(`^ls`), "List files in a directory"},
	{regexp.MustCompile(`^cd`), "Change to a different directory"},
	{regexp.MustCompile(`^pwd`), "Show current directory"},
	{regexp.MustCompile(`^cat`), "Display file contents"},
	{regexp.MustCompile(`^cp`), "Copy files"},
	{regexp.MustCompile(`^mv`), "Move or rename files"},
	{regexp.MustCompile(`^rm`), "Delete files"},
	{regexp.MustCompile(`^mkdir`), "Create a new folder"},
	{regexp.MustCompile(`^touch`), "Create an empty file"},
	{regexp.MustCompile(`^chmod`), "Change file permissions"},
	{regexp.MustCompile(`^chown`), "Change file ownership"},
	{regexp.MustCompile(`^apt\s+install`), "Install software"},
	{regexp.MustCompile(`^apt\s+update`), "Check for software updates"},
	{regexp.MustCompile(`^apt\s+upgrade`), "Install available updates"},
	{regexp.MustCompile(`^apt\s+remove`), "Uninstall software"},
	{regexp.MustCompile(`^grep`), "Search for text in files"},
	{regexp.MustCompile(`^find`), "Search for files"},
	{regexp.MustCompile(`^df`), "Show disk space"},
	{regexp.MustCompile(`^du`), "Show folder sizes"},
	{regexp.MustCompile(`^ps`), "Show running programs"},
	{regexp.MustCompile(`^top|^htop`), "Show system activity"},
	{regexp.MustCompile(`^kill`), "Stop a running program"},
	{regexp.MustCompile(`^sudo`), "Run as administrator"},
	{regexp.MustCompile(`^apt-get`), "Package management"},
	{regexp.MustCompile(`^dpkg`), "Package management"},
	{regexp.MustCompile(`^systemctl`), "Manage system services"},
	{regexp.MustCompile(`^journalctl`), "View system logs"},
}

// Explain returns a plain-language description of what a command does.
func (g *Guard) Explain(command string) string {
	for _, e := range explanations {
		if e.re.MatchString(command) {
			return e.text
		}
	}
	return "Execute a system command"
}
