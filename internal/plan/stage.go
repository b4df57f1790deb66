package plan

import "sort"

// DefaultSocialFields maps contact CSV columns to keys of the social map
var DefaultSocialFields = map[string]string{
	"twitter_url":  "twitter",
	"facebook_url": "facebook",
	"bluesky_url":  "bluesky",
	"ir_email":     "ir_email",
	"cs_email":     "cs_email",
	"ir_page":      "ir_page",
	"cs_page":      "cs_page",
	"domain":       "website",
}

// SocialColumns returns the column names of a social field map, sorted
func SocialColumns(social map[string]string) []string {
	cols := make([]string, 0, len(social))
	for col := range social {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// ContactMutations builds the social map updates for a matched contact row.
// Empty values are skipped.
func ContactMutations(contact map[string]string, social map[string]string, origin Origin) []Mutation {
	var out []Mutation
	for _, col := range SocialColumns(social) {
		value := contact[col]
		if value == "" {
			continue
		}
		out = append(out, SetValueInMap(FieldSocial, social[col], value, origin))
	}
	return out
}

// StageContact stages a matched contact row against its entity
func StageContact(p *WritePlan, entityID string, contact map[string]string, social map[string]string, origin Origin) []Conflict {
	return p.Stage(entityID, ContactMutations(contact, social, origin)...)
}

// StageSubsidiary links a subsidiary to its parent: the parent gains the
// subsidiary in its subsidiaries map and the subsidiary records its parent
func StageSubsidiary(p *WritePlan, parentID, parentName, subsidiaryID string, origin Origin) []Conflict {
	conflicts := p.Stage(parentID, SetTrueInMap(FieldSubsidiaries, subsidiaryID, origin))
	return append(conflicts, p.Stage(subsidiaryID,
		SetValue(FieldParentCompany, parentName, origin),
		SetValue(FieldParentID, parentID, origin),
	)...)
}
