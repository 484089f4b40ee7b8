package command

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultEngine is the container engine binary used when none is configured.
	DefaultEngine = "docker"

	// ImagePrefix is shared by every image this tool builds.
	ImagePrefix = "rails-new-"

	// HelpFlag is passed to the generator by GetHelp.
	HelpFlag = "--help"
)

// generatorPrefix is the in-container command that scaffolds a new application.
var generatorPrefix = []string{"rails", "new"}

// StdinMode describes how a spawned process receives its standard input.
type StdinMode int

const (
	StdinNone StdinMode = iota
	StdinPiped
	StdinInherit
)

func (m StdinMode) String() string {
	switch m {
	case StdinPiped:
		return "piped"
	case StdinInherit:
		return "inherit"
	default:
		return "none"
	}
}

// BuildSpec holds the parameters of an image build.
// UserID and GroupID are either both set or both nil.
type BuildSpec struct {
	RubyVersion  string
	RailsVersion string
	UserID       *int
	GroupID      *int
	Rebuild      bool
}

// Invocation is a fully specified external process call.
type Invocation struct {
	program string
	args    []string
	stdin   StdinMode
}

// Program returns the executable name.
func (i Invocation) Program() string {
	return i.program
}

// Args returns a copy of the ordered argument list.
func (i Invocation) Args() []string {
	out := make([]string, len(i.args))
	copy(out, i.args)
	return out
}

// Stdin returns the standard input mode.
func (i Invocation) Stdin() StdinMode {
	return i.stdin
}

// String renders the invocation as a shell command line.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.args)+1)
	parts = append(parts, quote(i.program))
	for _, a := range i.args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// ImageName derives the image tag from the version pair. An empty railsVersion
// leaves the suffix off.
func ImageName(rubyVersion, railsVersion string) string {
	if railsVersion == "" {
		return ImagePrefix + rubyVersion
	}
	return fmt.Sprintf("%s%s-%s", ImagePrefix, rubyVersion, railsVersion)
}

// Builder assembles engine invocations. The zero value uses DefaultEngine.
type Builder struct {
	Engine string
}

// NewBuilder returns a Builder for the given engine binary.
func NewBuilder(engine string) Builder {
	return Builder{Engine: engine}
}

func (b Builder) engine() string {
	if b.Engine == "" {
		return DefaultEngine
	}
	return b.Engine
}

// BuildImage returns the build invocation. The image definition is read from
// standard input, signaled by the trailing "-".
func (b Builder) BuildImage(spec BuildSpec) Invocation {
	args := []string{"build"}

	if spec.Rebuild {
		args = append(args, "--no-cache")
	}

	args = appendBuildArg(args, "RUNTIME_VERSION", spec.RubyVersion)
	if spec.RailsVersion != "" {
		args = appendBuildArg(args, "FRAMEWORK_VERSION", spec.RailsVersion)
	}
	if spec.UserID != nil {
		args = appendBuildArg(args, "USER_ID", strconv.Itoa(*spec.UserID))
	}
	if spec.GroupID != nil {
		args = appendBuildArg(args, "GROUP_ID", strconv.Itoa(*spec.GroupID))
	}

	args = append(args, "-t", ImageName(spec.RubyVersion, spec.RailsVersion), "-")

	return Invocation{program: b.engine(), args: args, stdin: StdinPiped}
}

// RunImage returns the invocation that runs the generator with the working
// directory bind-mounted at the same path inside the container.
func (b Builder) RunImage(rubyVersion, railsVersion, workdir string, generatorArgs []string) Invocation {
	args := []string{"run", "--rm"}
	args = append(args, "-v", workdir+":"+workdir, "-w", workdir)
	args = append(args, ImageName(rubyVersion, railsVersion))
	args = append(args, generatorPrefix...)
	args = append(args, generatorArgs...)

	return Invocation{program: b.engine(), args: args, stdin: StdinInherit}
}

// GetHelp returns the invocation that prints the generator's usage. It needs no
// filesystem access, so nothing is mounted.
func (b Builder) GetHelp(rubyVersion, railsVersion string) Invocation {
	args := []string{"run", "--rm", ImageName(rubyVersion, railsVersion)}
	args = append(args, generatorPrefix...)
	args = append(args, HelpFlag)

	return Invocation{program: b.engine(), args: args, stdin: StdinInherit}
}

func appendBuildArg(args []string, key, value string) []string {
	return append(args, "--build-arg", key+"="+value)
}
