package job

import (
	"github.com/TryAwesome/CVibe-sub002/matching/skill"
	"github.com/mitchellh/mapstructure"
)

// Requirements is the structured requirements blob supplied by crawlers,
// e.g. {"years": 3, "tech": ["Go", "SQL"], "education": "BS"}.
type Requirements struct {
	Years     int      `json:"years,omitempty"`
	Tech      []string `json:"tech,omitempty"`
	Education string   `json:"education,omitempty"`
}

// DecodeRequirements converts a loosely typed blob into Requirements.
// Numbers given as strings and comma-separated tech lists are accepted.
func DecodeRequirements(raw map[string]any) (Requirements, error) {
	var req Requirements
	if len(raw) == 0 {
		return req, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return req, ErrInvalidRequirements().WithCause(err)
	}
	if err := decoder.Decode(raw); err != nil {
		return req, ErrInvalidRequirements().WithCause(err)
	}

	req.Tech = skill.Dedupe(req.Tech)
	return req, nil
}

// MergeSkills combines explicitly listed skills with the requirement blob's
// tech list, keeping declared order and dropping duplicates.
func MergeSkills(explicit []string, req Requirements) []string {
	all := make([]string, 0, len(explicit)+len(req.Tech))
	all = append(all, explicit...)
	all = append(all, req.Tech...)
	return skill.Dedupe(all)
}
