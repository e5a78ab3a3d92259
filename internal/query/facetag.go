package query

import (
	"strconv"
	"strings"

	"github.com/tvnews/newsquery/internal/datacontext"
	"github.com/tvnews/newsquery/internal/errs"
	"github.com/tvnews/newsquery/internal/index"
)

var globalFaceTags = map[string]struct{}{
	"all": {}, "male": {}, "female": {}, "host": {}, "nonhost": {},
}

func isGlobalFaceTag(t string) bool {
	_, ok := globalFaceTags[t]
	return ok
}

func parseTagSet(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// eitherTagOrNone rejects simultaneous use of two mutually exclusive
// global tags, e.g. "male" and "female" in the same face_tag atom.
func eitherTagOrNone(a, b string, present map[string]struct{}) (string, error) {
	_, hasA := present[a]
	_, hasB := present[b]
	switch {
	case hasA && hasB:
		return "", errs.InvalidUsage("cannot use %q and %q tags simultaneously; try \"all\"", a, b)
	case hasA:
		return a, nil
	case hasB:
		return b, nil
	default:
		return "", nil
	}
}

// faceTimeFilterMask turns a (gender, host) pair of global tags into the
// payload mask/value pair IListMap filtering uses. A gender tag also
// requires the nonbinary bit to be clear, as the derived male/female face
// isets do.
func faceTimeFilterMask(genderTag, hostTag string) (mask, value byte) {
	if genderTag != "" {
		mask |= datacontext.FaceBitMale | datacontext.FaceBitNonbinary
		if genderTag == "male" {
			value |= datacontext.FaceBitMale
		}
	}
	if hostTag != "" {
		mask |= datacontext.FaceBitHost
		if hostTag == "host" {
			value |= datacontext.FaceBitHost
		}
	}
	return mask, value
}

// resolveGlobalFaceISet implements the nine-way decision tree selecting
// a precomputed face ISetMap for a pure combination of global tags.
func resolveGlobalFaceISet(faces datacontext.FaceIntervals, genderTag, hostTag string) index.ISetMap {
	switch {
	case genderTag == "" && hostTag == "":
		return faces.AllISetMap
	case genderTag == "":
		if hostTag == "host" {
			return faces.HostISetMap
		}
		return faces.NonhostISetMap
	case genderTag == "male":
		switch hostTag {
		case "":
			return faces.MaleISetMap
		case "host":
			return faces.MaleHostISetMap
		default:
			return faces.MaleNonhostISetMap
		}
	default: // female
		switch hostTag {
		case "":
			return faces.FemaleISetMap
		case "host":
			return faces.FemaleHostISetMap
		default:
			return faces.FemaleNonhostISetMap
		}
	}
}

// resolveFaceTag implements the full face_tag atom: parse the
// comma-separated tag string, resolve it to a single ISetMap.
func resolveFaceTag(data *datacontext.DataContext, tagStr string) (index.ISetMap, error) {
	tags := parseTagSet(tagStr)
	present := make(map[string]struct{}, len(tags))
	var globalTags []string
	for _, t := range tags {
		present[t] = struct{}{}
		if isGlobalFaceTag(t) {
			globalTags = append(globalTags, t)
		}
	}

	genderTag, err := eitherTagOrNone("male", "female", present)
	if err != nil {
		return nil, err
	}
	hostTag, err := eitherTagOrNone("host", "nonhost", present)
	if err != nil {
		return nil, err
	}
	_, hasAll := present["all"]
	isAll := hasAll && genderTag == "" && hostTag == ""

	if len(globalTags) == len(tags) {
		if isAll {
			return data.Faces.AllISetMap, nil
		}
		return resolveGlobalFaceISet(data.Faces, genderTag, hostTag), nil
	}

	ilists, err := personTagsToIListMaps(data, tags)
	if err != nil {
		return nil, err
	}
	if len(ilists) == 0 {
		return nil, errs.NotFound("no people found for tag %q", tagStr)
	}
	mask, value := faceTimeFilterMask(genderTag, hostTag)
	return index.NewUnionIListsToISet(ilists, mask, value, 3000, 100), nil
}

// personTagsToIListMaps resolves the non-global tags in tags to the set
// of persons carrying all of them, then to their per-person ilists — or,
// when exactly one non-global tag is present and a precomputed tag ilist
// exists for it, returns that single cached ilist directly.
func personTagsToIListMaps(data *datacontext.DataContext, tags []string) ([]index.IListMap, error) {
	var nonGlobal []string
	for _, t := range tags {
		if !isGlobalFaceTag(t) {
			nonGlobal = append(nonGlobal, t)
		}
	}
	if len(nonGlobal) == 0 {
		return nil, nil
	}
	if len(nonGlobal) == 1 {
		if cached, ok := data.TagIntervals[nonGlobal[0]]; ok {
			return []index.IListMap{cached}, nil
		}
	}

	var selected map[string]struct{}
	for _, tag := range nonGlobal {
		names, ok := data.PersonTags.PersonsForTag(tag)
		if !ok {
			return nil, errs.NotFound("tag %q not found", tag)
		}
		if selected == nil {
			selected = make(map[string]struct{}, len(names))
			for _, n := range names {
				selected[n] = struct{}{}
			}
			continue
		}
		for n := range selected {
			found := false
			for _, cand := range names {
				if cand == n {
					found = true
					break
				}
			}
			if !found {
				delete(selected, n)
			}
		}
	}

	ilists := make([]index.IListMap, 0, len(selected))
	for name := range selected {
		p, ok := data.PersonsByName[name]
		if !ok {
			return nil, errs.NotFound("person %q not found", name)
		}
		ilists = append(ilists, p.IListMap)
	}
	return ilists, nil
}

// resolveFaceCount implements face_count(N): 1<=N<=255.
func resolveFaceCount(data *datacontext.DataContext, raw string) (index.ISetMap, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errs.InvalidUsage("face_count value %q is not an integer", raw)
	}
	if n < 1 {
		return nil, errs.InvalidUsage("face_count cannot be less than 1")
	}
	if n > 0xFF {
		return nil, errs.InvalidUsage("face_count cannot be greater than %d", 0xFF)
	}
	return index.NewIListToISet(data.Faces.NumFacesIListMap, 0xFF, byte(n), 3000, 0), nil
}
