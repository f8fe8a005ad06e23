package engine

// FileSpec is a file an engine component has produced for later writing:
// llm_generate's "files" output format produces these, and write_files
// consumes them.
type FileSpec struct {
	Path    string      `json:"path"`
	Content interface{} `json:"content"`
}

// AsMap renders a FileSpec as the generic map shape write_files also
// accepts directly from JSON (a path/content pair with no Go type behind
// it), so both representations flow through the same code path.
func (f FileSpec) AsMap() map[string]interface{} {
	return map[string]interface{}{"path": f.Path, "content": f.Content}
}
