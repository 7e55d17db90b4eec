package rules

func boolPtr(b bool) *bool { return &b }

// SeedRooms returns the built-in demo rule sets, one list per room.
func SeedRooms() map[string][]Rule {
	return map[string][]Rule{
		"general":  generalRules(),
		"billing":  billingRules(),
		"clinical": clinicalRules(),
	}
}

func generalRules() []Rule {
	return []Rule{
		{
			ID:      "RULE-101",
			Event:   "Hide Field",
			Target:  Target{Field: "Business Reason"},
			When:    []Condition{{Field: "Role", Op: "!=", Value: "Admin"}},
			Action:  Action{Kind: "setVisibility", Visible: boolPtr(false)},
			Summary: "Hide Business Reason when Role != Admin",
		},
		{
			ID:      "RULE-102",
			Event:   "Disable Field",
			Target:  Target{Field: "Cost Center"},
			When:    []Condition{{Field: "Approval Status", Op: "=", Value: "Approved"}},
			Action:  Action{Kind: "setEnabled", Enabled: boolPtr(false)},
			Summary: "Lock Cost Center after approval",
		},
		{
			ID:      "RULE-103",
			Event:   "Make Required",
			Target:  Target{Field: "Manager Email"},
			When:    []Condition{{Field: "Amount", Op: ">", Value: 1000}},
			Action:  Action{Kind: "setRequired", Required: boolPtr(true)},
			Summary: "Require Manager Email for large amounts",
		},
		{
			ID:     "RULE-104",
			Event:  "Validation",
			Target: Target{Field: "End Date"},
			When:   []Condition{{Field: "Start Date", Op: "exists", Value: true}},
			Action: Action{
				Kind:      "validate",
				Validator: "dateOrder",
				Params:    map[string]any{"startfield": "Start Date", "endfield": "End Date"},
			},
			Summary: "Start Date must be before End Date",
		},
	}
}

func billingRules() []Rule {
	return []Rule{
		{
			ID:      "BILL-201",
			Event:   "Make Required",
			Target:  Target{Field: "Billing Code"},
			When:    []Condition{{Field: "Charge Type", Op: "=", Value: "Medical"}},
			Action:  Action{Kind: "setRequired", Required: boolPtr(true)},
			Summary: "Require Billing Code for Medical charges",
		},
		{
			ID:      "BILL-202",
			Event:   "Disable Field",
			Target:  Target{Field: "Billed Amount"},
			When:    []Condition{{Field: "Claim Status", Op: "=", Value: "Submitted"}},
			Action:  Action{Kind: "setEnabled", Enabled: boolPtr(false)},
			Summary: "Lock Billed Amount once claim is submitted",
		},
		{
			ID:     "BILL-203",
			Event:  "Validation",
			Target: Target{Field: "Allowed Amount"},
			When:   []Condition{{Field: "Allowed Amount", Op: "exists", Value: true}},
			Action: Action{
				Kind:      "validate",
				Validator: "range",
				Params:    map[string]any{"field": "Allowed Amount", "min": 0},
			},
			Summary: "Allowed Amount must be >= 0",
		},
		{
			ID:      "BILL-204",
			Event:   "Hide Field",
			Target:  Target{Field: "Out-of-Network Reason"},
			When:    []Condition{{Field: "Network Status", Op: "=", Value: "In Network"}},
			Action:  Action{Kind: "setVisibility", Visible: boolPtr(false)},
			Summary: "Hide Out-of-Network Reason when In Network",
		},
		{
			ID:      "BILL-205",
			Event:   "Make Required",
			Target:  Target{Field: "Out-of-Network Reason"},
			When:    []Condition{{Field: "Network Status", Op: "=", Value: "Out of Network"}},
			Action:  Action{Kind: "setRequired", Required: boolPtr(true)},
			Summary: "Require Out-of-Network Reason when applicable",
		},
		{
			ID:      "BILL-206",
			Event:   "AddOptions",
			Target:  Target{Field: "Payment Method"},
			When:    []Condition{{Field: "Payer Type", Op: "=", Value: "Government"}},
			Action:  Action{Kind: "updateOptions", Mode: "add", Options: []string{"EFT"}},
			Summary: "Allow EFT for Government payers",
		},
	}
}

func clinicalRules() []Rule {
	return []Rule{
		{
			ID:      "CLIN-301",
			Event:   "Disable Field",
			Target:  Target{Field: "Diagnosis Code"},
			When:    []Condition{{Field: "Encounter Status", Op: "=", Value: "Closed"}},
			Action:  Action{Kind: "setEnabled", Enabled: boolPtr(false)},
			Summary: "Lock Diagnosis Code when encounter is closed",
		},
		{
			ID:      "CLIN-302",
			Event:   "Make Required",
			Target:  Target{Field: "Primary Diagnosis"},
			When:    []Condition{{Field: "Visit Type", Op: "=", Value: "Clinical"}},
			Action:  Action{Kind: "setRequired", Required: boolPtr(true)},
			Summary: "Require Primary Diagnosis for clinical visits",
		},
		{
			ID:      "CLIN-303",
			Event:   "Hide Field",
			Target:  Target{Field: "Experimental Notes"},
			When:    []Condition{{Field: "User Role", Op: "!=", Value: "Clinician"}},
			Action:  Action{Kind: "setVisibility", Visible: boolPtr(false)},
			Summary: "Hide Experimental Notes from non-clinicians",
		},
		{
			ID:     "CLIN-304",
			Event:  "Validation",
			Target: Target{Field: "Symptom Onset Date"},
			When:   []Condition{{Field: "Visit Date", Op: "exists", Value: true}},
			Action: Action{
				Kind:      "validate",
				Validator: "dateOrder",
				Params:    map[string]any{"startfield": "Symptom Onset Date", "endfield": "Visit Date"},
			},
			Summary: "Symptom onset must be before visit date",
		},
		{
			ID:      "CLIN-305",
			Event:   "Disable Field",
			Target:  Target{Field: "Medication Dosage"},
			When:    []Condition{{Field: "Allergy Flag", Op: "=", Value: true}},
			Action:  Action{Kind: "setEnabled", Enabled: boolPtr(false)},
			Summary: "Disable dosage edits when allergy flag is present",
		},
		{
			ID:      "CLIN-306",
			Event:   "Make Required",
			Target:  Target{Field: "Consent Form Signed"},
			When:    []Condition{{Field: "Procedure Type", Op: "=", Value: "Invasive"}},
			Action:  Action{Kind: "setRequired", Required: boolPtr(true)},
			Summary: "Require consent for invasive procedures",
		},
	}
}
