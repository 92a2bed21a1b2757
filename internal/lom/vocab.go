package lom

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed hcrt.yaml
var hcrtYAML []byte

var hcrtByResourceType map[string]*string

func init() {
	if err := yaml.Unmarshal(hcrtYAML, &hcrtByResourceType); err != nil {
		panic("lom: bad hcrt.yaml: " + err.Error())
	}
}

// LearningResourceType maps a moodle resource-type label to its hcrt
// vocabulary term. The second return is false when the label is unknown
// or explicitly carries no term; callers drop the field in that case.
func LearningResourceType(resourceType string) (string, bool) {
	term, ok := hcrtByResourceType[resourceType]
	if !ok || term == nil || *term == "" {
		return "", false
	}
	return *term, true
}
