package resources

// Clusters lists /clusters. Clusters are not managed here.
func Clusters() Resource {
	r := base("clusters", "cluster")
	r.ReadOnly = true
	return r
}

// Tasks lists /tasks.
func Tasks() Resource {
	r := base("tasks", "task")
	r.ReadOnly = true
	return r
}
