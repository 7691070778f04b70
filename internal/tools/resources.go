// file: internal/tools/resources.go
package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

const (
	fileURIPrefix = "file://"
	structureURI  = "workspace://structure"
)

func registerFileResource(reg *mcp.Registry, deps Deps) error {
	return reg.RegisterResource(mcp.ResourceDefinition{
		Resource: protocol.Resource{
			URI:         "file://{filePath}",
			Name:        "Workspace File",
			Description: "Content of a workspace-relative file.",
			MimeType:    "text/plain",
		},
		Match: func(uri string) bool {
			return strings.HasPrefix(uri, fileURIPrefix)
		},
		Handler: func(_ context.Context, uri string) (*protocol.ReadResourceResult, error) {
			rel := strings.TrimPrefix(uri, fileURIPrefix)
			if rel == "" {
				return nil, errors.New("file URI carries no path")
			}
			content, err := deps.Workspace.ReadFile(rel, "", 0, -1, -1)
			if err != nil {
				return nil, err
			}
			return &protocol.ReadResourceResult{
				Contents: []protocol.ResourceContents{{
					URI:      uri,
					MimeType: "text/plain",
					Text:     content,
				}},
			}, nil
		},
	})
}

func registerStructureResource(reg *mcp.Registry, deps Deps) error {
	return reg.RegisterResource(mcp.ResourceDefinition{
		Resource: protocol.Resource{
			URI:         structureURI,
			Name:        "Workspace Structure",
			Description: "Recursive JSON tree of the workspace: directories with children, files with size and extension.",
			MimeType:    "application/json",
		},
		Handler: func(_ context.Context, uri string) (*protocol.ReadResourceResult, error) {
			root, err := deps.Workspace.Structure()
			if err != nil {
				return nil, err
			}
			data, err := json.MarshalIndent(root, "", "  ")
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode workspace structure")
			}
			return &protocol.ReadResourceResult{
				Contents: []protocol.ResourceContents{{
					URI:      uri,
					MimeType: "application/json",
					Text:     string(data),
				}},
			}, nil
		},
	})
}
