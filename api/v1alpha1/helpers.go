package v1alpha1

// NodeGroupByName returns the node group with the given name.
func (c *Cluster) NodeGroupByName(name string) (*NodeGroup, bool) {
	for i := range c.NodeGroups {
		if c.NodeGroups[i].Name == name {
			return &c.NodeGroups[i], true
		}
	}
	return nil, false
}

// NodeGroupByID returns the node group with the given id.
func (c *Cluster) NodeGroupByID(id string) (*NodeGroup, bool) {
	for i := range c.NodeGroups {
		if c.NodeGroups[i].ID == id {
			return &c.NodeGroups[i], true
		}
	}
	return nil, false
}

// Instances returns every instance of the cluster in node group order.
func (c *Cluster) Instances() []Instance {
	var out []Instance
	for _, ng := range c.NodeGroups {
		out = append(out, ng.Instances...)
	}
	return out
}

// InstanceCount returns the number of live instances across all node groups.
func (c *Cluster) InstanceCount() int {
	n := 0
	for _, ng := range c.NodeGroups {
		n += len(ng.Instances)
	}
	return n
}

// HasProcess reports whether the node group runs the named process.
func (ng *NodeGroup) HasProcess(process string) bool {
	for _, p := range ng.NodeProcesses {
		if p == process {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the node group has no desired and no live instances.
func (ng *NodeGroup) IsEmpty() bool {
	return ng.Count == 0 && len(ng.Instances) == 0
}
