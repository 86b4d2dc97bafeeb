package rules

// Defaults returns the built-in rule tables for the New Zealand
// residential corpus the assistant ships with. Deployments with their own
// corpus override these with a rules file.
func Defaults() File {
	return File{
		Sources: []Source{
			{
				Name:     "NZS 3604",
				Label:    "NZS3604",
				Priority: true,
				Terms: []string{
					"stud spacing", "stud", "dwang", "nog", "lintel",
					"top plate", "bottom plate", "bracing", "wind zone",
					"timber framing", "joist", "bearer", "rafter",
				},
			},
			{
				Name:     "E2/AS1",
				Label:    "E2",
				Priority: true,
				Terms: []string{
					"weathertightness", "flashing", "underlay", "cavity",
					"risk matrix", "cladding", "apron", "membrane",
				},
			},
			{
				Name:     "B1/AS1",
				Label:    "B1",
				Priority: false,
				Terms:    nil,
			},
			{
				Name:     "B1/AS1 Amendment 13",
				Label:    "B1 Amd13",
				Priority: true,
				Current:  true,
				Terms: []string{
					"amendment 13", "amdt 13",
				},
			},
			{
				Name:     "MRM COP",
				Label:    "COP",
				Priority: true,
				Current:  true,
				Terms: []string{
					"roof pitch", "purlin", "fastener", "profiled metal",
					"corrugate", "trapezoidal", "swarf", "run-off",
					"penetration", "ridging", "trough",
				},
			},
		},
		BoostRules: []BoostRule{
			{
				// Explicit amendment queries prefer the amendment text and
				// demote the superseded base document.
				Tag:     "amendment-query",
				Pattern: `(?i)\bamendment\s*13\b|\bamdt\.?\s*13\b|\bamd\s*13\b`,
				Boosts: map[string]float64{
					"B1/AS1 Amendment 13": 1.30,
					"B1/AS1":              0.70,
				},
			},
			{
				// Mentions of the parent standard without the word
				// "amendment" still lean toward the amended text, mildly.
				Tag:     "general-b1-query",
				Pattern: `(?i)\bb1/as1\b`,
				Exclude: `(?i)\bamendment\b|\bamdt\b|\bamd\s*13\b`,
				Boosts: map[string]float64{
					"B1/AS1 Amendment 13": 1.10,
				},
			},
		},
		GateTemplates: []GateTemplate{
			{
				Category: "roof_pitch_suitability",
				Trigger:  `(?i)\b(minimum|min\.?)\s+(roof\s+)?pitch\b|\bcan\s+i\s+use\b.*\broof\b|\bpitch\s+(requirement|suitab)`,
				Fields: []GateField{
					{
						Name:    "roofProfile",
						Pattern: `(?i)\b(corrugate\w*|trapezoidal|tray|standing\s+seam|five\s*rib|trough)\b`,
						Prompt:  "the roof profile (e.g. corrugate, trapezoidal, tray)",
					},
					{
						Name:    "pitchDeg",
						Pattern: `(?i)\b(\d{1,2}(?:\.\d+)?)\s*(?:deg(?:rees?)?|°)\b`,
						Prompt:  "the roof pitch in degrees",
					},
				},
			},
			{
				Category: "fastener_selection",
				Trigger:  `(?i)\bwhich\s+fastener\b|\bfastener\s+(type|grade|selection)\b|\bscrew\s+grade\b`,
				Fields: []GateField{
					{
						Name:    "claddingType",
						Pattern: `(?i)\b(steel|aluminium|zincalume|galvanised|copper)\b`,
						Prompt:  "the cladding material",
					},
					{
						Name:    "environmentZone",
						Pattern: `(?i)\bzone\s*([a-e1-5])\b|\b(marine|geothermal|industrial)\b`,
						Prompt:  "the corrosion environment (zone or e.g. marine, geothermal)",
					},
				},
			},
		},
	}
}
