package config

// BuildContext is the immutable set of paths and flags driving a single
// invocation. It is built once and passed by value to every stage.
type BuildContext struct {
	SrcDir           string
	TempDir          string
	DestDir          string
	TemplateFile     string
	TempTemplatesDir string
	PolymerGlob      string
	StyleguideGlob   string
	DemoDir          string

	Production bool

	Targets     []string
	SassCommand []string
}

// Overrides are command line values taking precedence over the file.
type Overrides struct {
	SrcDir  string
	DestDir string
	Type    string
}

func (c *Configuration) BuildContext(o Overrides) BuildContext {
	bc := BuildContext{
		SrcDir:           c.WebcomponentsFolder,
		TempDir:          c.Temp,
		DestDir:          c.Dest,
		TemplateFile:     c.TemplateFile,
		TempTemplatesDir: c.TempTemplates,
		PolymerGlob:      c.Polymer,
		StyleguideGlob:   c.Styleguide,
		DemoDir:          c.Demo,
		Production:       c.Type == ProductionType,
		Targets:          append([]string(nil), c.Targets...),
		SassCommand:      append([]string(nil), c.SassCommand...),
	}

	if o.SrcDir != "" {
		bc.SrcDir = o.SrcDir
	}
	if o.DestDir != "" {
		bc.DestDir = o.DestDir
	}
	if o.Type != "" {
		bc.Production = o.Type == ProductionType
	}

	return bc
}
