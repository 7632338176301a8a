package git

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"repo-sync-automation/pkg/log"
)

const (
	censored = "xxxxx"

	// DeletedFile is the fingerprint DirtyFiles reports for removed paths.
	DeletedFile   = "deleted"
	submoduleFile = "submodule"
)

// Repo runs git commands against a single working tree.
type Repo struct {
	dir      string
	git      string
	cloneURL string
	secret   string
	l        log.Logger
}

// New creates a Repo for dir. cloneURL is used only when the tree has to be cloned;
// token, if set, is injected into https clone URLs and censored from all output.
func New(dir, cloneURL, token string, l log.Logger) (*Repo, error) {
	bin, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGitNotFound, err)
	}

	authURL, err := AuthenticatedURL(cloneURL, token)
	if err != nil {
		return nil, err
	}

	return &Repo{
		dir:      dir,
		git:      bin,
		cloneURL: authURL,
		secret:   token,
		l:        l,
	}, nil
}

// Dir returns the working tree path.
func (r *Repo) Dir() string {
	return r.dir
}

// AuthenticatedURL embeds token into an https clone URL. Other URLs (ssh, local
// paths) are returned unchanged.
func AuthenticatedURL(cloneURL, token string) (string, error) {
	if token == "" || !strings.HasPrefix(cloneURL, "https://") {
		return cloneURL, nil
	}
	u, err := url.Parse(cloneURL)
	if err != nil {
		return "", fmt.Errorf("invalid clone url: %w", err)
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String(), nil
}

func (r *Repo) censor(s string) string {
	if r.secret == "" {
		return s
	}
	return strings.ReplaceAll(s, r.secret, censored)
}

// IsRepository reports whether the working tree has been cloned.
func (r *Repo) IsRepository(ctx context.Context) bool {
	if _, err := os.Stat(filepath.Join(r.dir, ".git")); err != nil {
		return false
	}
	out, err := r.run(ctx, r.dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Clone clones branch into the working tree directory.
func (r *Repo) Clone(ctx context.Context, branch string) error {
	parent := filepath.Dir(r.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	r.l.Infof(ctx, "Cloning %s (branch: %s) into %s", r.censor(r.cloneURL), branch, r.dir)
	_, err := r.run(ctx, parent, "clone", "--branch", branch, r.cloneURL, r.dir)
	return err
}

// Fetch updates remote/branch from the remote.
func (r *Repo) Fetch(ctx context.Context, remote, branch string) error {
	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch)
	_, err := r.run(ctx, r.dir, "fetch", "--prune", remote, refspec)
	return err
}

// ResetHard checks out branch at remote/branch, discarding tracked local changes.
func (r *Repo) ResetHard(ctx context.Context, remote, branch string) error {
	target := remote + "/" + branch
	if _, err := r.run(ctx, r.dir, "checkout", "-f", "-B", branch, target); err != nil {
		return err
	}
	_, err := r.run(ctx, r.dir, "reset", "--hard", target)
	return err
}

// HasChanges reports whether the tree has staged, unstaged or untracked changes.
func (r *Repo) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, r.dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// DirtyFiles returns every changed or untracked path mapped to the blob hash of
// its current content, or DeletedFile when the path no longer exists.
func (r *Repo) DirtyFiles(ctx context.Context) (map[string]string, error) {
	out, err := r.run(ctx, r.dir, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	var present []string
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		status, path := entry[:2], entry[3:]
		if status[0] == 'R' || status[0] == 'C' {
			i++ // the source path follows
		}
		info, err := os.Lstat(filepath.Join(r.dir, path))
		switch {
		case err != nil:
			files[path] = DeletedFile
		case info.IsDir():
			files[path] = submoduleFile
		default:
			present = append(present, path)
		}
	}

	if len(present) == 0 {
		return files, nil
	}
	// --no-filters keeps CRLF warnings off the combined output.
	args := append([]string{"hash-object", "--no-filters", "--"}, present...)
	out, err = r.run(ctx, r.dir, args...)
	if err != nil {
		return nil, err
	}
	hashes := strings.Fields(out)
	if len(hashes) != len(present) {
		return nil, fmt.Errorf("git hash-object returned %d hashes for %d paths", len(hashes), len(present))
	}
	for i, path := range present {
		files[path] = hashes[i]
	}
	return files, nil
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repo) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, r.dir, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// Stash saves all local changes, including untracked files.
func (r *Repo) Stash(ctx context.Context, message string) error {
	_, err := r.run(ctx, r.dir, "stash", "push", "--include-untracked", "-m", message)
	return err
}

// Add stages paths. An empty list stages everything. Paths that neither exist
// nor are tracked are skipped.
func (r *Repo) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var known []string
	for _, p := range paths {
		if _, err := os.Lstat(filepath.Join(r.dir, p)); err == nil {
			known = append(known, p)
			continue
		}
		if out, err := r.run(ctx, r.dir, "ls-files", "--", p); err == nil && strings.TrimSpace(out) != "" {
			known = append(known, p)
		}
	}
	if len(known) == 0 {
		return nil
	}

	args := append([]string{"add", "-A", "--"}, known...)
	_, err := r.run(ctx, r.dir, args...)
	return err
}

// Commit records staged changes.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.run(ctx, r.dir, "commit", "-m", message)
	return err
}

// Push pushes HEAD to remote/branch. A rejection because the remote moved
// returns an error wrapping ErrNonFastForward.
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	out, err := r.run(ctx, r.dir, "push", remote, "HEAD:refs/heads/"+branch)
	if err != nil && isNonFastForward(out) {
		return fmt.Errorf("%w: %v", ErrNonFastForward, err)
	}
	return err
}

func isNonFastForward(output string) bool {
	for _, marker := range []string{"non-fast-forward", "[rejected]", "fetch first"} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

// Rebase replays local commits on top of remote/branch. On conflict the rebase
// is aborted and an error wrapping ErrRebaseConflict is returned.
func (r *Repo) Rebase(ctx context.Context, remote, branch string) error {
	_, err := r.run(ctx, r.dir, "rebase", remote+"/"+branch)
	if err == nil {
		return nil
	}
	if _, abortErr := r.run(ctx, r.dir, "rebase", "--abort"); abortErr != nil {
		r.l.Warnf(ctx, "Aborting rebase failed: %v", abortErr)
	}
	return fmt.Errorf("%w: %v", ErrRebaseConflict, err)
}

// Head returns the commit SHA HEAD points to.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.run(ctx, r.dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RemoteHead returns the commit SHA remote/branch points to after the last fetch.
func (r *Repo) RemoteHead(ctx context.Context, remote, branch string) (string, error) {
	out, err := r.run(ctx, r.dir, "rev-parse", remote+"/"+branch)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// EnsureIdentity sets a local commit identity when none is configured.
func (r *Repo) EnsureIdentity(ctx context.Context, name, email string) error {
	for key, value := range map[string]string{"user.name": name, "user.email": email} {
		if out, err := r.run(ctx, r.dir, "config", key); err == nil && strings.TrimSpace(out) != "" {
			continue
		}
		r.l.Infof(ctx, "Running git config %s %s", key, value)
		if _, err := r.run(ctx, r.dir, "config", key, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.git, args...) // #nosec
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	b, err := cmd.CombinedOutput()
	output := r.censor(string(b))
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w. output: %s", r.censor(strings.Join(args, " ")), err, strings.TrimSpace(output))
	}
	return output, nil
}
