package definition

// Document is the YAML form of a workflow definition.
type Document struct {
	Name         string     `yaml:"name"`
	Version      int        `yaml:"version"`
	Compensation bool       `yaml:"compensation"`
	Steps        []StepSpec `yaml:"steps"`
}

// StepSpec is the YAML form of one step. Which fields apply depends on Kind.
type StepSpec struct {
	Name string `yaml:"name"`
	// Kind defaults to "action" when Action is set and to "sequence" when
	// only Steps is.
	Kind string `yaml:"kind"`

	// action
	Action     string `yaml:"action"`
	Compensate string `yaml:"compensate"`

	// if, while, dowhile: a registered predicate or a boolean property.
	When         string `yaml:"when"`
	WhenProperty string `yaml:"when_property"`

	// if
	Then []StepSpec `yaml:"then"`
	Else []StepSpec `yaml:"else"`

	// sequence, parallel, foreach, while, dowhile, retry, try
	Steps []StepSpec `yaml:"steps"`

	// parallel
	Limit int `yaml:"limit"`

	// foreach: a registered item source or a []any property.
	Items         string `yaml:"items"`
	ItemsProperty string `yaml:"items_property"`

	// retry
	Attempts int    `yaml:"attempts"`
	Backoff  string `yaml:"backoff"`

	// try
	Catch   []CatchSpec `yaml:"catch"`
	Finally []StepSpec  `yaml:"finally"`

	// subworkflow
	Workflow        string `yaml:"workflow"`
	WorkflowVersion int    `yaml:"workflow_version"`

	// delay, timeout
	Duration string `yaml:"duration"`

	// timeout
	Step *StepSpec `yaml:"step"`
}

// CatchSpec is one catch clause of a try step. Error names a built-in
// class (any, timeout, retry_exhausted, panic, canceled, deadline) or an
// error registered with Registry.RegisterError. An empty Error catches
// everything. An empty Steps list swallows the error.
type CatchSpec struct {
	Error string     `yaml:"error"`
	Steps []StepSpec `yaml:"steps"`
}
