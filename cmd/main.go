package main

import (
	"github.com/vlad-ds/street-view-mcp/pkg/mcp"
)

func main() {
	mcp.Execute()
}
