package agency

// Stage is a default sales pipeline column.
type Stage struct {
	Name     string
	Color    string
	Position int
}

// DefaultPipelineStages are seeded for every new agency.
var DefaultPipelineStages = []Stage{
	{Name: "New Lead", Color: "#64748b", Position: 0},
	{Name: "Contacted", Color: "#3b82f6", Position: 1},
	{Name: "Proposal Sent", Color: "#8b5cf6", Position: 2},
	{Name: "Negotiation", Color: "#f59e0b", Position: 3},
	{Name: "Booked", Color: "#10b981", Position: 4},
	{Name: "Lost", Color: "#ef4444", Position: 5},
}

// DefaultTaskColumns are seeded for every new agency.
var DefaultTaskColumns = []Stage{
	{Name: "To Do", Color: "#64748b", Position: 0},
	{Name: "In Progress", Color: "#3b82f6", Position: 1},
	{Name: "Review", Color: "#f59e0b", Position: 2},
	{Name: "Done", Color: "#10b981", Position: 3},
}
