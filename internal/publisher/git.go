package publisher

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rdmlabs/rdm-engine/internal/domain/run"
	"github.com/rdmlabs/rdm-engine/internal/pkg/slug"
)

var sshRemoteRe = regexp.MustCompile(`^git@[^:]+:([^/]+)/(.+)$`)

// parseGitHubRemote extracts owner and repo name from an ssh or https
// remote URL.
func parseGitHubRemote(remoteURL string) (owner, repo string, ok bool) {
	if m := sshRemoteRe.FindStringSubmatch(remoteURL); m != nil {
		return m[1], strings.TrimSuffix(m[2], ".git"), true
	}

	parsed, err := url.Parse(remoteURL)
	if err != nil || parsed.Path == "" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

// toHTTPSURL rewrites ssh-style remotes to their https equivalent.
func toHTTPSURL(remoteURL string) string {
	if strings.HasPrefix(remoteURL, "git@") {
		hostAndPath := strings.SplitN(remoteURL, "@", 2)[1]
		host, path, found := strings.Cut(hostAndPath, ":")
		if !found {
			return ""
		}
		return fmt.Sprintf("https://%s/%s", host, path)
	}
	if strings.HasPrefix(remoteURL, "ssh://git@") {
		parsed, err := url.Parse(remoteURL)
		if err != nil || parsed.Hostname() == "" {
			return ""
		}
		return fmt.Sprintf("https://%s%s", parsed.Hostname(), parsed.Path)
	}
	return remoteURL
}

// buildAuthedURL embeds the token into an https push URL so pushes work
// without ambient git credentials. Empty when no usable URL can be built.
func buildAuthedURL(remoteURL, token string) string {
	if token == "" {
		return ""
	}
	httpsURL := toHTTPSURL(remoteURL)
	if httpsURL == "" {
		return ""
	}
	parsed, err := url.Parse(httpsURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	if parsed.User != nil {
		return httpsURL
	}
	parsed.User = url.UserPassword("x-access-token", token)
	return parsed.String()
}

// buildBranchName derives the step branch: rdm/step-<id>-<slug>, with the
// attempt label folded into the slug for repair passes.
func buildBranchName(stepID int, description, attempt string) string {
	source := description
	if source == "" {
		source = "step"
	}
	if attempt != "" && attempt != run.AttemptInitial {
		source = source + "-" + attempt
	}
	return fmt.Sprintf("rdm/step-%d-%s", stepID, slug.Make(source, 40, "step"))
}

// shortGoal condenses a description into a commit/PR title fragment.
func shortGoal(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return "Update"
	}
	const maxLen = 60
	if len(cleaned) <= maxLen {
		return cleaned
	}
	return strings.TrimRight(cleaned[:maxLen-3], " ") + "..."
}

// summarizeCommands lists the non-empty commands of a transcript.
func summarizeCommands(transcript run.Transcript) []string {
	var commands []string
	for _, entry := range transcript {
		if cmd := strings.TrimSpace(entry.Command); cmd != "" {
			commands = append(commands, cmd)
		}
	}
	return commands
}

// buildPRBody renders the PR description: session, step, commands, files.
func buildPRBody(sessionID string, stepID int, commands, files []string) string {
	if sessionID == "" {
		sessionID = "unknown"
	}
	lines := []string{
		"Session ID: " + sessionID,
		"Step Number: " + strconv.Itoa(stepID),
		"",
		"Commands:",
	}
	if len(commands) > 0 {
		for _, cmd := range commands {
			lines = append(lines, "- "+cmd)
		}
	} else {
		lines = append(lines, "- No commands recorded; step executed without shell commands.")
	}

	lines = append(lines, "", "Files Changed:")
	if len(files) > 0 {
		for _, path := range files {
			lines = append(lines, "- "+path)
		}
	} else {
		lines = append(lines, "- (none)")
	}

	return strings.Join(lines, "\n")
}

// parseNumstat reads `git diff --cached --numstat` output into line counts
// and the binary file list (numstat reports binaries as "-").
func parseNumstat(out string) (additions, deletions int, binaries []string) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(strings.TrimSpace(line), "\t", 3)
		if len(fields) < 3 {
			continue
		}
		if fields[0] == "-" || fields[1] == "-" {
			binaries = append(binaries, fields[2])
			continue
		}
		if n, err := strconv.Atoi(fields[0]); err == nil {
			additions += n
		}
		if n, err := strconv.Atoi(fields[1]); err == nil {
			deletions += n
		}
	}
	return additions, deletions, binaries
}
