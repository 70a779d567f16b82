// Package metainfo projects a decoded .torrent file onto typed fields.
//
// Only single-file torrents are modeled: the info dictionary must carry a
// total length, not a file list.
package metainfo

import (
	"fmt"
	"os"
	"time"

	"github.com/mohae/deepcopy"

	"btmeta/internal/bencode"
)

// Metainfo is the parsed contents of a .torrent file.
type Metainfo struct {
	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	CreationDate time.Time
	Info         Info

	// info is the decoded info dictionary as it appeared in the file. Only
	// the keys Info does not model are read from it.
	info bencode.Dict
}

// Info describes the content of a single-file torrent.
type Info struct {
	Name        string
	Length      int64
	PieceLength int64
	Pieces      []Hash
	Private     bool
}

// FieldError reports a missing or invalid metainfo key. Kind is one of the
// bencode error kinds.
type FieldError struct {
	Key    string
	Kind   error
	Detail string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("metainfo: %s: %s", e.Key, e.Detail)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// Load reads and parses the .torrent file at path.
func Load(path string) (*Metainfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metainfo: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data as a bencoded dictionary and validates the keys a
// single-file torrent requires: announce, info.name, info.length,
// info.piece length and info.pieces.
//
// Optional keys (announce-list, comment, created by, creation date,
// info.private) are ignored when they carry an unexpected type.
func Parse(data []byte) (*Metainfo, error) {
	v, err := bencode.DecodeAll(data)
	if err != nil {
		return nil, fmt.Errorf("metainfo: %w", err)
	}
	root, ok := v.(bencode.Dict)
	if !ok {
		return nil, &FieldError{Key: "(root)", Kind: bencode.ErrTypeMismatch, Detail: "got " + kindOf(v) + ", want dictionary"}
	}

	m := &Metainfo{}
	if m.Announce, err = requireString(root, "", "announce"); err != nil {
		return nil, err
	}

	rawInfo, ok := root["info"]
	if !ok {
		return nil, missing("info")
	}
	info, ok := rawInfo.(bencode.Dict)
	if !ok {
		return nil, mistyped("info", rawInfo, "dictionary")
	}
	if m.Info, err = parseInfo(info); err != nil {
		return nil, err
	}
	m.info = info

	m.AnnounceList = announceList(root)
	if s, ok := root.GetString("comment"); ok {
		m.Comment = string(s)
	}
	if s, ok := root.GetString("created by"); ok {
		m.CreatedBy = string(s)
	}
	if n, ok := root.GetInt("creation date"); ok {
		m.CreationDate = time.Unix(int64(n), 0).UTC()
	}
	return m, nil
}

func parseInfo(d bencode.Dict) (Info, error) {
	var (
		info Info
		err  error
	)
	if info.Name, err = requireString(d, "info.", "name"); err != nil {
		return info, err
	}
	if info.Length, err = requireInt(d, "info.", "length"); err != nil {
		return info, err
	}
	if info.Length < 0 {
		return info, &FieldError{Key: "info.length", Kind: bencode.ErrMalformed, Detail: fmt.Sprintf("negative length %d", info.Length)}
	}
	if info.PieceLength, err = requireInt(d, "info.", "piece length"); err != nil {
		return info, err
	}
	if info.PieceLength <= 0 {
		return info, &FieldError{Key: "info.piece length", Kind: bencode.ErrMalformed, Detail: fmt.Sprintf("piece length %d is not positive", info.PieceLength)}
	}

	pieces, err := requireString(d, "info.", "pieces")
	if err != nil {
		return info, err
	}
	if info.Pieces, err = splitPieces([]byte(pieces)); err != nil {
		return info, err
	}

	if n, ok := d.GetInt("private"); ok {
		info.Private = n == 1
	}
	return info, nil
}

func splitPieces(b []byte) ([]Hash, error) {
	if len(b)%HashSize != 0 {
		return nil, &FieldError{
			Key:    "info.pieces",
			Kind:   bencode.ErrSizeMismatch,
			Detail: fmt.Sprintf("length %d is not a multiple of %d", len(b), HashSize),
		}
	}
	hashes := make([]Hash, len(b)/HashSize)
	for i := range hashes {
		copy(hashes[i][:], b[i*HashSize:])
	}
	return hashes, nil
}

// announceList reads the BEP 12 tiers, skipping anything that is not a
// list of byte strings.
func announceList(root bencode.Dict) [][]string {
	tiers, ok := root.GetList("announce-list")
	if !ok {
		return nil
	}
	var out [][]string
	for _, t := range tiers {
		tier, ok := t.(bencode.List)
		if !ok {
			continue
		}
		var urls []string
		for _, u := range tier {
			if s, ok := u.(bencode.String); ok && len(s) > 0 {
				urls = append(urls, string(s))
			}
		}
		if len(urls) > 0 {
			out = append(out, urls)
		}
	}
	return out
}

// InfoHash returns the SHA-1 of the canonically encoded info dictionary
// built from m.Info. It is recomputed on every call, so edits to m.Info
// are always reflected.
func (m *Metainfo) InfoHash() Hash {
	return InfoHash(m.infoDict())
}

// infoDict builds the info dictionary from m.Info and carries over, as deep
// copies, the keys of the parsed dictionary that Info does not model.
func (m *Metainfo) infoDict() bencode.Dict {
	d := m.Info.Dict()
	for k, v := range m.info {
		if _, ok := d[k]; ok {
			continue
		}
		if n, ok := v.(bencode.Int); ok && k == "private" && n == 1 {
			// cleared through Info.Private
			continue
		}
		d[k] = deepcopy.Copy(v).(bencode.Value)
	}
	return d
}

// Trackers returns the announce URLs to contact. When an announce-list is
// present its tiers are flattened in order and announce is ignored, as
// BEP 12 prescribes; otherwise announce is the only tracker.
func (m *Metainfo) Trackers() []string {
	if len(m.AnnounceList) == 0 {
		if m.Announce == "" {
			return nil
		}
		return []string{m.Announce}
	}

	seen := make(map[string]bool)
	var urls []string
	for _, tier := range m.AnnounceList {
		for _, u := range tier {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	return urls
}

// Dict builds a fresh bencode form of m. For a parsed Metainfo the info
// dictionary keeps the keys Info does not model. Changing the result does
// not affect m.
func (m *Metainfo) Dict() bencode.Dict {
	d := bencode.Dict{
		"announce": bencode.String(m.Announce),
		"info":     m.infoDict(),
	}

	if len(m.AnnounceList) > 0 {
		tiers := make(bencode.List, len(m.AnnounceList))
		for i, tier := range m.AnnounceList {
			urls := make(bencode.List, len(tier))
			for j, u := range tier {
				urls[j] = bencode.String(u)
			}
			tiers[i] = urls
		}
		d["announce-list"] = tiers
	}
	if m.Comment != "" {
		d["comment"] = bencode.String(m.Comment)
	}
	if m.CreatedBy != "" {
		d["created by"] = bencode.String(m.CreatedBy)
	}
	if !m.CreationDate.IsZero() {
		d["creation date"] = bencode.Int(m.CreationDate.Unix())
	}
	return d
}

// Dict builds the info dictionary from the typed fields.
func (i *Info) Dict() bencode.Dict {
	pieces := make(bencode.String, 0, len(i.Pieces)*HashSize)
	for _, h := range i.Pieces {
		pieces = append(pieces, h[:]...)
	}

	d := bencode.Dict{
		"name":         bencode.String(i.Name),
		"length":       bencode.Int(i.Length),
		"piece length": bencode.Int(i.PieceLength),
		"pieces":       pieces,
	}
	if i.Private {
		d["private"] = bencode.Int(1)
	}
	return d
}

// PieceCount returns the number of pieces.
func (i *Info) PieceCount() int {
	return len(i.Pieces)
}

// PieceSize returns the size of piece index. Every piece is PieceLength
// bytes except the last, which holds the remainder. Out of range indexes
// have size zero.
func (i *Info) PieceSize(index int) int64 {
	if index < 0 || index >= len(i.Pieces) || i.PieceLength <= 0 {
		return 0
	}
	start := int64(index) * i.PieceLength
	if rest := i.Length - start; rest < i.PieceLength {
		if rest < 0 {
			return 0
		}
		return rest
	}
	return i.PieceLength
}

func requireString(d bencode.Dict, prefix, key string) (string, error) {
	v, ok := d[key]
	if !ok {
		return "", missing(prefix + key)
	}
	s, ok := v.(bencode.String)
	if !ok {
		return "", mistyped(prefix+key, v, "byte string")
	}
	return string(s), nil
}

func requireInt(d bencode.Dict, prefix, key string) (int64, error) {
	v, ok := d[key]
	if !ok {
		return 0, missing(prefix + key)
	}
	n, ok := v.(bencode.Int)
	if !ok {
		return 0, mistyped(prefix+key, v, "integer")
	}
	return int64(n), nil
}

func missing(key string) *FieldError {
	return &FieldError{Key: key, Kind: bencode.ErrTypeMismatch, Detail: "missing"}
}

func mistyped(key string, v bencode.Value, want string) *FieldError {
	return &FieldError{Key: key, Kind: bencode.ErrTypeMismatch, Detail: "got " + kindOf(v) + ", want " + want}
}

func kindOf(v bencode.Value) string {
	switch v.(type) {
	case bencode.String:
		return "byte string"
	case bencode.Int:
		return "integer"
	case bencode.List:
		return "list"
	case bencode.Dict:
		return "dictionary"
	}
	return "nothing"
}
