package descriptor

import (
	"fmt"
	"regexp"
)

// Descriptor is a generated module-info.java.
type Descriptor struct {
	// Dir is the work-area directory the descriptor was found in.
	Dir    string
	Path   string
	Source string
}

var moduleHeader = regexp.MustCompile(`(?m)^(\s*)(open\s+)?module\s+([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\{`)

// Module returns the module name declared in the header.
func (d *Descriptor) Module() (string, error) {
	m := moduleHeader.FindStringSubmatch(d.Source)
	if m == nil {
		return "", fmt.Errorf("%s: no module declaration", d.Path)
	}
	return m[3], nil
}

// Opened returns the source with its header rewritten to "open module X {".
// A header that is already open is left as is.
func (d *Descriptor) Opened() (string, error) {
	loc := moduleHeader.FindStringSubmatchIndex(d.Source)
	if loc == nil {
		return "", fmt.Errorf("%s: no module declaration", d.Path)
	}
	if loc[4] >= 0 {
		return d.Source, nil
	}
	indent := d.Source[loc[2]:loc[3]]
	name := d.Source[loc[6]:loc[7]]
	return d.Source[:loc[0]] + indent + "open module " + name + " {" + d.Source[loc[1]:], nil
}
