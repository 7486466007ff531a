// Defines the workspace operations used by provisioning.

package provision

import (
	"context"

	"github.com/maruel/notionspec/internal/notion"
)

// Workspace is the subset of the Notion API used to provision databases.
// *notion.Client implements it.
type Workspace interface {
	CreateDatabase(ctx context.Context, req *notion.CreateDatabaseRequest) (*notion.Database, error)
	UpdateDatabase(ctx context.Context, id string, req *notion.UpdateDatabaseRequest) (*notion.Database, error)
	CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error)
	UpdatePage(ctx context.Context, id string, req *notion.UpdatePageRequest) (*notion.Page, error)
}

var _ Workspace = (*notion.Client)(nil)
