package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions. Descriptions are written for MCP clients; parameter
// names match the ops input structs so decode can map them directly.

var infoToolDef = mcp.NewTool("deck_info",
	mcp.WithDescription("Inspect a .pptx deck: part census, slide count, title, and content types. Read-only."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the .pptx file"),
	),
)

var checkToolDef = mcp.NewTool("deck_check",
	mcp.WithDescription("Validate a .pptx deck's container structure and report issues. Read-only; records a run in history."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the .pptx file"),
	),
)

var fixToolDef = mcp.NewTool("deck_fix",
	mcp.WithDescription("Validate and repair a .pptx deck, writing the repaired archive. Repairs remove or synthesize structure but never invent content."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the .pptx file to repair"),
	),
	mcp.WithString("output",
		mcp.Description("Destination path; defaults to repairing in place"),
	),
	mcp.WithBoolean("prune_orphans",
		mcp.Description("Also remove parts unreachable from the package root"),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Report what would be repaired without writing anything"),
	),
)

var buildToolDef = mcp.NewTool("deck_build",
	mcp.WithDescription("Build a .pptx deck from a markdown outline (# title slide, ## content slides, lists become bullets, fenced blocks become code)."),
	mcp.WithString("markdown_path",
		mcp.Required(),
		mcp.Description("Path to the .md outline"),
	),
	mcp.WithString("output",
		mcp.Required(),
		mcp.Description("Destination .pptx path"),
	),
	mcp.WithString("title",
		mcp.Description("Deck title; defaults to the first slide's title"),
	),
	mcp.WithString("theme_path",
		mcp.Description("YAML theme file overriding the configured theme"),
	),
)

var historyToolDef = mcp.NewTool("deck_history",
	mcp.WithDescription("List recorded check/fix/build runs, newest first, or fetch one run with its issues by id."),
	mcp.WithString("id",
		mcp.Description("Run id; when set, returns that run with its issues"),
	),
	mcp.WithString("file",
		mcp.Description("Restrict the listing to runs against one deck"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum runs to return; defaults to the configured history_limit"),
	),
)
