package git

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const refPrefix = "ref: "

// Repo is a git checkout on disk.
type Repo struct {
	Path string `json:"path"`
}

// FindRepoFromPath walks up from path until it finds the directory holding .git.
func FindRepoFromPath(fs afero.Fs, path string) (*Repo, error) {
	path = filepath.Clean(path)
	for {
		isDir, err := afero.IsDir(fs, filepath.Join(path, ".git"))
		if err == nil && isDir {
			return &Repo{Path: path}, nil
		}

		parent := filepath.Dir(path)
		if parent == path {
			return nil, errors.New("no git repository found")
		}
		path = parent
	}
}

// CurrentCommit resolves HEAD to a commit hash without spawning git, following a branch
// ref through loose refs first and packed-refs second.
func (r *Repo) CurrentCommit(fs afero.Fs) (string, error) {
	gitDir := filepath.Join(r.Path, ".git")
	head, err := afero.ReadFile(fs, filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", errors.Wrap(err, "failed to read HEAD")
	}

	content := strings.TrimSpace(string(head))
	if !strings.HasPrefix(content, refPrefix) {
		return content, nil
	}

	ref := strings.TrimPrefix(content, refPrefix)
	loose, err := afero.ReadFile(fs, filepath.Join(gitDir, filepath.FromSlash(ref)))
	if err == nil {
		return strings.TrimSpace(string(loose)), nil
	}

	packed, err := afero.ReadFile(fs, filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return "", errors.Errorf("ref %s not found", ref)
	}

	scanner := bufio.NewScanner(bytes.NewReader(packed))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[1] == ref {
			return fields[0], nil
		}
	}

	return "", errors.Errorf("ref %s not found", ref)
}
