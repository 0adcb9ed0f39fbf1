package capability

type Summary struct {
	Document int `json:"document"`
	User     int `json:"user"`
	Workflow int `json:"workflow"`
	System   int `json:"system"`
}

type Profile struct {
	Capabilities []Capability `json:"capabilities"`
	Summary      Summary      `json:"summary"`
}

// Resolve lists the capabilities granted by permissions in canonical order.
// Unknown permissions are ignored so the vocabulary can grow without breaking callers.
func Resolve(permissions []string) Profile {
	set := Parse(permissions)
	profile := Profile{Capabilities: make([]Capability, 0)}

	for _, c := range canonical {
		if !set.has(c.Permission) {
			continue
		}
		profile.Capabilities = append(profile.Capabilities, c)
		switch c.Category {
		case CategoryDocument:
			profile.Summary.Document++
		case CategoryUser:
			profile.Summary.User++
		case CategoryWorkflow:
			profile.Summary.Workflow++
		case CategorySystem:
			profile.Summary.System++
		}
	}

	return profile
}

// Unknown returns the entries of permissions that the canonical table does not define.
func Unknown(permissions []string) []string {
	var out []string
	for _, p := range permissions {
		if !Known(p) {
			out = append(out, p)
		}
	}
	return out
}
