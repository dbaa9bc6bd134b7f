// Package gitinfo resolves repository metadata for the builtin env vars.
package gitinfo

import (
	gogit "github.com/go-git/go-git/v5"
	"github.com/ptrunner/pt/internal/domain"
)

// Client reads HEAD from the repository enclosing the project root.
type Client struct {
	branch string
	commit string
}

var _ domain.GitInfo = (*Client)(nil)

// New opens the repository containing dir. Outside a repository both
// accessors return "".
func New(dir string) *Client {
	c := &Client{}
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return c
	}
	head, err := repo.Head()
	if err != nil {
		return c
	}
	c.commit = head.Hash().String()
	if head.Name().IsBranch() {
		c.branch = head.Name().Short()
	}
	return c
}

// Branch returns the current branch name, "" when detached or no repo.
func (c *Client) Branch() string { return c.branch }

// Commit returns the HEAD commit hash, "" when no repo.
func (c *Client) Commit() string { return c.commit }
