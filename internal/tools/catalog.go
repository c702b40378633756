package tools

var decisionCategories = []string{
	"component_selection",
	"architecture",
	"power_supply",
	"fabrication",
	"testing",
	"issue",
	"milestone",
	"other",
}

var impactLevels = []string{"low", "medium", "high", "critical"}

// DecisionCategories returns the categories accepted by log_decision.
func DecisionCategories() []string {
	return append([]string(nil), decisionCategories...)
}

func ImpactLevels() []string {
	return append([]string(nil), impactLevels...)
}

// MemoryBankTools returns the memory-bank tool definitions in advertised order.
func MemoryBankTools() []Definition {
	return []Definition{
		{
			Name:        "init_memory_bank",
			Description: "Initialize memory-bank system in a project",
			Schema: Object(
				Prop("project_path", String("Path to project directory").WithDefault(".")),
				Prop("project_name", String("Name of the project")),
			),
		},
		{
			Name:        "log_decision",
			Description: "Log an engineering decision with rationale and context",
			Schema: Object(
				Prop("category", String("Decision category").WithEnum(decisionCategories...)),
				Prop("decision", String("The decision that was made")),
				Prop("rationale", String("Why this decision was made")),
				Prop("alternatives", ArrayOf(String(""), "Alternative options that were considered")),
				Prop("impact", String("Impact level of the decision").WithEnum(impactLevels...).WithDefault("medium")),
				Prop("tags", ArrayOf(String(""), "Tags for categorization")),
				Prop("context", FreeForm("Additional context information")),
			).WithRequired("category", "decision"),
		},
		{
			Name:        "search_decisions",
			Description: "Search decision history by query, category, or tags",
			Schema: Object(
				Prop("query", String("Search query string")),
				Prop("category", String("Filter by decision category")),
				Prop("tags", ArrayOf(String(""), "Filter by tags")),
			).WithRequired("query"),
		},
		{
			Name:        "analyze_decisions",
			Description: "Get AI-powered analysis of project decisions",
			Schema:      Object(),
		},
		{
			Name:        "get_recommendations",
			Description: "Get AI recommendations based on decision history",
			Schema:      Object(),
		},
		{
			Name:        "get_timeline",
			Description: "Get chronological timeline of decisions",
			Schema:      Object(),
		},
		{
			Name:        "get_statistics",
			Description: "Get memory-bank statistics and metrics",
			Schema:      Object(),
		},
		{
			Name:        "setup_git_hooks",
			Description: "Setup git hooks for automatic decision capture",
			Schema:      Object(),
		},
	}
}

// NewMemoryBankRegistry builds the catalog served by memory-bank.
func NewMemoryBankRegistry() (*Registry, error) {
	return NewRegistry(MemoryBankTools()...)
}
