package session

// ToolInfo is the unprefixed view of one upstream tool, as reported by
// tools/list. The catalog package applies server-name prefixing on top of
// this.
type ToolInfo struct {
	Name        string
	Description string
	Parameters  any
}

// ResourceInfo is the unprefixed view of one upstream resource.
type ResourceInfo struct {
	URI         string
	Description string
	MimeType    string
}

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptInfo is the unprefixed view of one upstream prompt.
type PromptInfo struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// Inventory is a session's last known set of tools, resources and prompts,
// swapped atomically after every refresh_inventory().
type Inventory struct {
	Tools     []ToolInfo
	Resources []ResourceInfo
	Prompts   []PromptInfo
}
