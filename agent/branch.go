package agent

// buildBranchPath joins parent and child into the dotted branch identifier
// that keeps child-agent state mutations isolated. Either side may be empty,
// in which case the other is returned as-is.
func buildBranchPath(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	default:
		return parent + "." + child
	}
}
