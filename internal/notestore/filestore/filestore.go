// Package filestore implements notestore.Store against a real directory
// tree of markdown files, standing in for the external NoteStore daemon
// the core engine treats as a black box. Front matter parsing follows the
// teacher's graceful-fallback idiom (internal/indexer/frontmatter.go):
// malformed front matter is treated as no front matter rather than a hard
// error.
package filestore

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/loriensleafs/brain/internal/applog"
	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/notestore"
)

// Store is a markdown-directory-backed notestore.Store.
type Store struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange func(identifier string)
}

// Open roots a Store at dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, brainerr.Wrap(brainerr.Config, "create vault root", err, nil)
	}
	return &Store{root: dir}, nil
}

// Watch starts an fsnotify watch over the vault root; onChange is called
// with the note identifier whenever a markdown file is written, so the
// embedding pipeline can invalidate that note's stale rows (per the
// Note ownership & lifecycle rule: a note write triggers invalidation of
// its embedding rows).
func (s *Store) Watch(onChange func(identifier string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return brainerr.Wrap(brainerr.Config, "create vault watcher", err, nil)
	}
	if err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	}); err != nil {
		w.Close()
		return brainerr.Wrap(brainerr.Config, "walk vault root", err, nil)
	}
	s.watcher = w
	s.onChange = onChange

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasSuffix(ev.Name, ".md") {
					continue
				}
				id, err := s.identifierFor(ev.Name)
				if err != nil {
					continue
				}
				s.onChange(id)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				applog.Warn("notestore", "watcher error", map[string]any{"error": err.Error()})
			}
		}
	}()
	return nil
}

// Close stops the watcher, if running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) pathFor(identifier string) string {
	return filepath.Join(s.root, identifier+".md")
}

func (s *Store) identifierFor(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(rel, ".md"), nil
}

// WriteNote is idempotent by folder+title: an existing file at the same
// path is overwritten in place.
func (s *Store) WriteNote(folder, title string, body string, fm map[string]any) (string, error) {
	identifier := filepath.ToSlash(filepath.Join(folder, title))
	path := s.pathFor(identifier)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", brainerr.Wrap(brainerr.Config, "create note directory", err, nil)
	}

	var buf strings.Builder
	if len(fm) > 0 {
		enc, err := yaml.Marshal(fm)
		if err != nil {
			return "", brainerr.Wrap(brainerr.Protocol, "marshal frontmatter", err, nil)
		}
		buf.WriteString("---\n")
		buf.Write(enc)
		buf.WriteString("---\n\n")
	}
	buf.WriteString(body)

	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return "", brainerr.Wrap(brainerr.Config, "write note", err, nil)
	}
	return identifier, nil
}

// ReadNote reads and parses the note at identifier.
func (s *Store) ReadNote(identifier string) (notestore.Note, error) {
	path := s.pathFor(identifier)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notestore.Note{}, brainerr.New(brainerr.NotFound, "note not found: "+identifier, map[string]any{"identifier": identifier})
		}
		return notestore.Note{}, brainerr.Wrap(brainerr.Config, "read note", err, nil)
	}

	var meta map[string]any
	body, err := frontmatter.Parse(strings.NewReader(string(raw)), &meta)
	if err != nil {
		// Parse failure: treat the whole file as body, matching the
		// teacher's graceful fallback.
		body = raw
		meta = nil
	}

	info, _ := os.Stat(path)
	var updated time.Time
	if info != nil {
		updated = info.ModTime()
	}

	return notestore.Note{
		Identifier:  identifier,
		Title:       filepath.Base(identifier),
		Folder:      filepath.Dir(identifier),
		Body:        string(body),
		Frontmatter: meta,
		UpdatedAt:   updated,
	}, nil
}

// ListDirectory lists entries under path up to depth levels deep,
// optionally filtered by a glob pattern matched against the basename.
func (s *Store) ListDirectory(path string, depth int, glob string) ([]notestore.ListEntry, error) {
	root := filepath.Join(s.root, path)
	var out []notestore.ListEntry

	baseDepth := strings.Count(filepath.Clean(path), string(filepath.Separator))
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, _ := filepath.Rel(s.root, p)
		curDepth := strings.Count(filepath.Clean(rel), string(filepath.Separator))
		if depth > 0 && curDepth-baseDepth > depth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, d.Name()); !ok {
				return nil
			}
		}
		kind := "file"
		if d.IsDir() {
			kind = "dir"
		}
		info, _ := d.Info()
		var updated time.Time
		if info != nil {
			updated = info.ModTime()
		}
		identifier := strings.TrimSuffix(filepath.ToSlash(rel), ".md")
		out = append(out, notestore.ListEntry{
			Kind:      kind,
			Permalink: identifier,
			Title:     strings.TrimSuffix(d.Name(), ".md"),
			UpdatedAt: updated,
		})
		return nil
	})
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Config, "list directory", err, nil)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Permalink < out[j].Permalink })
	return out, nil
}

// Search performs a naive substring lexical search over note bodies, a
// reference-quality stand-in for whatever full-text engine a real
// NoteStore daemon would run.
func (s *Store) Search(query string, folders []string, fullContent bool) ([]notestore.SearchHit, error) {
	if query == "" {
		return nil, nil
	}
	lowerQuery := strings.ToLower(query)
	var hits []notestore.SearchHit

	err := filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, _ := filepath.Rel(s.root, p)
		identifier := strings.TrimSuffix(filepath.ToSlash(rel), ".md")
		if len(folders) > 0 && !inFolders(identifier, folders) {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		lowerBody := strings.ToLower(string(raw))
		idx := strings.Index(lowerBody, lowerQuery)
		if idx < 0 {
			return nil
		}
		hit := notestore.SearchHit{
			Permalink: identifier,
			Title:     strings.TrimSuffix(filepath.Base(identifier), ".md"),
			Snippet:   snippetAround(string(raw), idx, len(query)),
		}
		if fullContent {
			hit.FullContent = string(raw)
		}
		hits = append(hits, hit)
		return nil
	})
	if err != nil {
		return nil, brainerr.Wrap(brainerr.Config, "search", err, nil)
	}
	return hits, nil
}

func inFolders(identifier string, folders []string) bool {
	for _, f := range folders {
		if strings.HasPrefix(identifier, f) {
			return true
		}
	}
	return false
}

func snippetAround(body string, idx, matchLen int) string {
	const window = 240
	start := idx - window/2
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + window/2
	if end > len(body) {
		end = len(body)
	}
	return strings.TrimSpace(body[start:end])
}

// DeleteNote removes the note at identifier.
func (s *Store) DeleteNote(identifier string) error {
	path := s.pathFor(identifier)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return brainerr.New(brainerr.NotFound, "note not found: "+identifier, nil)
		}
		return brainerr.Wrap(brainerr.Config, "delete note", err, nil)
	}
	return nil
}

var _ notestore.Store = (*Store)(nil)
