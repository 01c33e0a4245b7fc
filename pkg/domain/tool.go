package domain

// ToolFile is the document describing the tools the rig can hold.
type ToolFile struct {
	FileName string          `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Name     string          `json:"name" yaml:"name" validate:"required"`
	Version  string          `json:"version" yaml:"version" validate:"required"`
	Content  map[string]Tool `json:"content" yaml:"content" validate:"dive"`
}

// Tool defines a tool available to the rig.
// PickUp optionally names the tool used to pick this one up.
type Tool struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Description string    `json:"description" yaml:"description"`
	PickUp      string    `json:"pick_up,omitempty" yaml:"pick_up,omitempty"`
	Variants    []Variant `json:"variants,omitempty" yaml:"variants,omitempty" validate:"dive"`
}

// Variant is a flavour of a tool, e.g. a tip size.
type Variant struct {
	Name          string `json:"name" yaml:"name" validate:"required"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Abbr          string `json:"abbr" yaml:"abbr" validate:"required"`
	PreferredWhen string `json:"preferred_when" yaml:"preferred_when"`
}
