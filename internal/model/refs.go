package model

// FileRefs returns every non-empty blob path reachable from s, in a stable
// order: photo, documents, then marksheets.
func FileRefs(s *Student) []string {
	if s == nil {
		return nil
	}
	var refs []string
	if s.PhotoPath != "" {
		refs = append(refs, s.PhotoPath)
	}
	for _, d := range s.Documents {
		if d.FilePath != "" {
			refs = append(refs, d.FilePath)
		}
	}
	for _, h := range s.AcademicHistories {
		if h.MarksheetPath != "" {
			refs = append(refs, h.MarksheetPath)
		}
	}
	return refs
}

// RefSet is FileRefs as a lookup set.
func RefSet(s *Student) map[string]struct{} {
	refs := FileRefs(s)
	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	return set
}

// ReleasedRefs returns the paths in before that after no longer references.
// before is usually a FileRefs snapshot taken prior to mutating the aggregate.
func ReleasedRefs(before []string, after *Student) []string {
	still := RefSet(after)
	var released []string
	for _, r := range before {
		if _, ok := still[r]; !ok {
			released = append(released, r)
		}
	}
	return released
}

// DocumentsOfType returns the indexes of documents tagged t.
func (s *Student) DocumentsOfType(t DocumentType) []int {
	var idx []int
	for i, d := range s.Documents {
		if d.DocumentType == t {
			idx = append(idx, i)
		}
	}
	return idx
}
