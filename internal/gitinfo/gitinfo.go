// Package gitinfo reads the current branch of a working copy and turns it
// into a feature name.
package gitinfo

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
)

// MaxFeatureLength keeps feature namespaces (feature-<name>) within the
// 63 character DNS label limit.
const MaxFeatureLength = 40

var (
	// ErrDetachedHead is returned when HEAD does not point at a branch.
	ErrDetachedHead = errors.New("HEAD is not on a branch")

	// ErrMainBranch is returned when the branch is a mainline branch that
	// never gets a feature deployment.
	ErrMainBranch = errors.New("mainline branch has no feature deployment")
)

// MainBranches never map to a feature.
var MainBranches = []string{"main", "master", "develop"}

var nonLabel = regexp.MustCompile(`[^a-z0-9-]+`)

// CurrentBranch returns the short name of the branch checked out in the
// repository containing dir.
func CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}

// FeatureName converts a branch name into a feature name usable in
// namespaces and hosts: lowercase, path prefixes like "feature/" dropped,
// runs of other characters collapsed to a dash.
func FeatureName(branch string) (string, error) {
	for _, main := range MainBranches {
		if branch == main {
			return "", fmt.Errorf("%w: %s", ErrMainBranch, branch)
		}
	}

	name := branch
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = nonLabel.ReplaceAllString(strings.ToLower(name), "-")
	name = strings.Trim(name, "-")
	if len(name) > MaxFeatureLength {
		name = strings.TrimRight(name[:MaxFeatureLength], "-")
	}
	if name == "" {
		return "", fmt.Errorf("branch %q yields an empty feature name", branch)
	}
	return name, nil
}

// Feature returns the feature name for the branch checked out in dir.
func Feature(dir string) (string, error) {
	branch, err := CurrentBranch(dir)
	if err != nil {
		return "", err
	}
	return FeatureName(branch)
}
