package search

// Select picks the strategy named in configuration. "auto" prefers the index
// and degrades to an exact scan; index may be nil when no ANN index exists.
func Select(name string, exact, index Strategy, corpus CorpusCounter, exactMaxCorpus int) (Strategy, error) {
	switch name {
	case "exact":
		return exact, nil
	case "index":
		if index == nil {
			return nil, ErrSearchUnavailable().WithDetail("strategy", name)
		}
		return index, nil
	case "auto", "":
		if index == nil {
			return exact, nil
		}
		return NewFallback(index, exact, corpus, exactMaxCorpus), nil
	default:
		return nil, ErrUnknownStrategy().WithDetail("strategy", name)
	}
}
