package gitinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureName(t *testing.T) {
	tests := []struct {
		name    string
		branch  string
		want    string
		wantErr error
	}{
		{name: "plain", branch: "feat1", want: "feat1"},
		{name: "prefixed", branch: "feature/PAY-123_checkout", want: "pay-123-checkout"},
		{name: "nested prefix", branch: "users/alice/new.ui", want: "new-ui"},
		{name: "trimmed dashes", branch: "--x--", want: "x"},
		{name: "long", branch: strings.Repeat("a", 60), want: strings.Repeat("a", MaxFeatureLength)},
		{name: "main", branch: "main", wantErr: ErrMainBranch},
		{name: "master", branch: "master", wantErr: ErrMainBranch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FeatureName(tt.branch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FeatureName("___")
	assert.Error(t, err)
}

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0644))
	_, err = wt.Add("README")
	require.NoError(t, err)
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}))
	return dir
}

func TestCurrentBranch(t *testing.T) {
	dir := initRepo(t, "feature/checkout")
	sub := filepath.Join(dir, "services", "api")
	require.NoError(t, os.MkdirAll(sub, 0755))

	branch, err := CurrentBranch(sub)
	require.NoError(t, err)
	assert.Equal(t, "feature/checkout", branch)

	feature, err := Feature(sub)
	require.NoError(t, err)
	assert.Equal(t, "checkout", feature)
}

func TestCurrentBranch_NotARepository(t *testing.T) {
	_, err := CurrentBranch(t.TempDir())
	assert.Error(t, err)
}
