package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/sea"
)

// State is a decoded checkpoint.
type State struct {
	Header  Header
	Records []Record
	// Truncated is set when the stream ended on a partial record.
	Truncated bool
}

// FromState converts a creature into its record.
func FromState(st sea.State) Record {
	return Record{
		ID:        st.ID,
		Parent:    st.ParentID,
		X:         st.Pos.X,
		Y:         st.Pos.Y,
		Kind:      st.Kind.String(),
		Mode:      st.Mode.String(),
		SpawnAge:  st.SpawnAge,
		StarveAge: st.Starvation.Threshold,
		Alive:     st.Alive,
		TotalAge:  st.TotalAge,
		Age:       st.Age,
		Starve:    st.Starvation.Counter,
	}
}

// State converts the record back into a creature.
func (r Record) State() (sea.State, error) {
	kind, err := components.ParseKind(r.Kind)
	if err != nil {
		return sea.State{}, err
	}
	mode, err := components.ParseSearchMode(r.Mode)
	if err != nil {
		return sea.State{}, err
	}
	st := sea.State{
		Creature: components.Creature{
			ID:       r.ID,
			ParentID: r.Parent,
			Kind:     kind,
			Pos:      components.Position{X: r.X, Y: r.Y},
			Mode:     mode,
			Age:      r.Age,
			TotalAge: r.TotalAge,
			SpawnAge: r.SpawnAge,
			Alive:    r.Alive,
		},
	}
	if kind == components.KindShark {
		st.Starvation = components.Starvation{Counter: r.Starve, Threshold: r.StarveAge}
	}
	return st, nil
}

// check rejects attribute values no running sea can produce.
func (r Record) check(h Header) error {
	if r.X < 0 || r.X >= h.Width || r.Y < 0 || r.Y >= h.Height {
		return fmt.Errorf("creature %d: position (%d, %d) outside %dx%d sea", r.ID, r.X, r.Y, h.Width, h.Height)
	}
	if r.SpawnAge < 1 {
		return fmt.Errorf("creature %d: spawn_age %d", r.ID, r.SpawnAge)
	}
	if r.Age < 0 || r.TotalAge < 0 || r.Starve < 0 {
		return fmt.Errorf("creature %d: negative age or starve counter", r.ID)
	}
	if r.Kind == components.KindShark.String() && r.StarveAge < 1 {
		return fmt.Errorf("creature %d: starve_age %d", r.ID, r.StarveAge)
	}
	return nil
}

// Capture records every living creature of s.
func Capture(s *sea.Sea, tick, frame int, seed uint64) State {
	st := State{
		Header: Header{
			Version: Version,
			Width:   s.Width(),
			Height:  s.Height(),
			NextID:  s.Population().PeekIdentity(),
			Tick:    tick,
			Frame:   frame,
			Seed:    seed,
			Sharks:  s.Sharks(),
			Fishes:  s.Fishes(),
		},
	}
	for _, c := range s.States() {
		if c.Alive {
			st.Records = append(st.Records, FromState(c))
		}
	}
	return st
}

// Rebuild creates a sea at the recorded size and re-creates every creature
// with its recorded attributes.
func (st State) Rebuild(rng sea.Rand, rules sea.Rules) (*sea.Sea, error) {
	s := sea.New(st.Header.Width, st.Header.Height, rng, rules)
	for _, rec := range st.Records {
		c, err := rec.State()
		if err != nil {
			return nil, fmt.Errorf("creature %d: %w", rec.ID, err)
		}
		if err := s.Restore(c); err != nil {
			return nil, err
		}
	}
	s.ResumeIdentity(st.Header.NextID)
	s.Recount()
	return s, nil
}

// Encode writes st as a checkpoint stream.
func Encode(w io.Writer, st State) error {
	cw, err := NewWriter(w, st.Header)
	if err != nil {
		return err
	}
	for _, rec := range st.Records {
		if err := cw.Write(rec); err != nil {
			cw.Close()
			return err
		}
	}
	return cw.Close()
}

// Decode reads a whole checkpoint stream.
func Decode(r io.Reader) (State, error) {
	cr, err := NewReader(r)
	if err != nil {
		return State{}, err
	}
	defer cr.Close()

	st := State{Header: cr.Header()}
	for {
		rec, ok := cr.Next()
		if !ok {
			break
		}
		st.Records = append(st.Records, rec)
	}
	st.Truncated = cr.Truncated()
	return st, nil
}

// Save writes st to path. The file is written beside path and renamed
// into place so an interrupted save leaves the previous checkpoint intact.
func Save(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, st); err != nil {
		f.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the checkpoint at path. A missing file is ErrNotFound.
func Load(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return State{}, err
	}
	defer f.Close()

	st, err := Decode(f)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}
