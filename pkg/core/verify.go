package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/core/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/vstore"
)

// verify opens the staged, not yet committed snapshot read-only and checks a
// bounded sample spanning the newly staged append range:
//
//   - the staged schema, serialized the way the commit descriptor would carry
//     it, reads back compatible with the dataset schema
//   - append coordinates in the sample are strictly increasing
//   - every sampled byte range lies within its granule's declared length,
//     and is physically readable when a resolver is available
//
// Any failure discards the transaction: the outcome is the same as a failed
// commit, with the branch pointer untouched.
func (u *Updater) verify(ctx context.Context, staged *vstore.Staged, accepted []model.GranuleRefs) error {
	tip := staged.Parent()
	buf, err := yaml.Marshal(staged.Schema())
	if err != nil {
		return status.ErrVerificationFailed.Wrap(err)
	}
	var readback model.ArraySchema
	if err := yaml.Unmarshal(buf, &readback); err != nil {
		return status.ErrVerificationFailed.Wrap(err)
	}
	if diffs := tip.Schema.Diff(&readback); len(diffs) > 0 {
		return status.ErrVerificationFailed.WrapMessage(
			"staged schema does not read back clean: %s", strings.Join(diffs, ", "))
	}

	coords := staged.TimeCoords()
	last := time.Time{}
	for _, t := range coords {
		if !t.After(last) {
			return status.ErrVerificationFailed.WrapMessage(
				"append coordinates not strictly increasing around %s", t.Format(time.RFC3339))
		}
		last = t
	}
	if len(coords) > 0 && !coords[0].After(tip.MaxTime) {
		return status.ErrVerificationFailed.WrapMessage("staged range does not start past the tip")
	}

	sizes := make(map[string]int64, len(accepted))
	for _, g := range accepted {
		sizes[g.Granule.SourceURI] = g.Granule.Size
	}

	refs := staged.Refs()
	for _, ix := range sampleIndices(len(refs), u.settings.VerifySample) {
		ref := refs[ix]
		if size, ok := sizes[ref.URI]; ok && size > 0 {
			if ref.Offset+ref.Length > size {
				return status.ErrVerificationFailed.WrapMessage(
					"chunk %s byte range [%d, %d) exceeds granule length %d",
					ref.Key(), ref.Offset, ref.Offset+ref.Length, size)
			}
		}
		if err := u.probeRef(ctx, ref); err != nil {
			return status.ErrVerificationFailed.WrapMessage("chunk %s read back failed: %v", ref.Key(), err)
		}
	}

	u.l.Info("verification passed",
		zap.Int("sampled_refs", min(len(refs), u.settings.VerifySample)),
		zap.Int("staged_refs", len(refs)))
	return nil
}

// probeRef reads the first byte of a referenced range to prove the reference
// resolves. Bounded: never transfers chunk payloads.
func (u *Updater) probeRef(ctx context.Context, ref model.ChunkRef) error {
	if u.resolver == nil {
		return nil
	}
	store, key, err := u.resolver.Resolve(ref.URI)
	if err != nil {
		return err
	}
	rdr, err := store.GetAt(ctx, key)
	if err != nil {
		return err
	}
	var b [1]byte
	_, err = rdr.ReadAt(b[:], ref.Offset)
	return err
}

// sampleIndices picks up to n indices spanning [0, total): always the first
// and last, the rest evenly spaced
func sampleIndices(total, n int) []int {
	if total == 0 || n <= 0 {
		return nil
	}
	if n >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	// total >= 2 from here on: a sample of one still probes both ends
	if n == 1 {
		return []int{0, total - 1}
	}
	out := make([]int, 0, n)
	step := float64(total-1) / float64(n-1)
	prev := -1
	for i := 0; i < n; i++ {
		ix := int(float64(i) * step)
		if ix == prev {
			continue
		}
		prev = ix
		out = append(out, ix)
	}
	if out[len(out)-1] != total-1 {
		out = append(out, total-1)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
