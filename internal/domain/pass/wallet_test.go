package pass

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newPass(n int, payload string) Pass {
	return Pass{
		ID:        fmt.Sprintf("p%d", n),
		Title:     fmt.Sprintf("Gym %d", n),
		IssueDate: t0,
		Barcode:   Barcode{Payload: payload, Symbology: SymbologyQR},
		CreatedAt: t0.Add(time.Duration(n) * time.Hour),
	}
}

func primaries(w *Wallet) []string {
	out := []string{}
	for _, p := range w.Passes() {
		if p.IsPrimary {
			out = append(out, p.ID)
		}
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		pass Pass
		want string
	}{
		{"ok", newPass(1, "abc"), ""},
		{"no title", Pass{Barcode: Barcode{Payload: "x", Symbology: SymbologyQR}}, "title is required"},
		{"no payload", Pass{Title: "t", Barcode: Barcode{Symbology: SymbologyQR}}, "barcode.payload is required"},
		{"no symbology", Pass{Title: "t", Barcode: Barcode{Payload: "x"}}, "barcode.symbology is required"},
		{"scanner symbology", Pass{Title: "t", Barcode: Barcode{Payload: "x", Symbology: SymbologyITF14}}, ""},
		{"unlisted symbology", Pass{Title: "t", Barcode: Barcode{Payload: "x", Symbology: "gs1DataBar"}}, ""},
		{"long symbology", Pass{Title: "t", Barcode: Barcode{Payload: "x", Symbology: Symbology(strings.Repeat("a", 33))}}, "barcode.symbology must be at most 32"},
		{"non-ascii symbology", Pass{Title: "t", Barcode: Barcode{Payload: "x", Symbology: "ｑｒ"}}, "barcode.symbology is invalid"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pass.Validate()
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsErrBadRequest(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestAddFirstPassBecomesPrimary(t *testing.T) {
	w := NewWallet(nil)
	require.NoError(t, w.Add(newPass(1, "a")))
	require.NoError(t, w.Add(newPass(2, "b")))

	assert.Equal(t, []string{"p1"}, primaries(w))
}

func TestAddRejectsDuplicateBarcode(t *testing.T) {
	w := NewWallet(nil)
	require.NoError(t, w.Add(newPass(1, "a")))

	dup := newPass(2, "a")
	err := w.Add(dup)
	assert.True(t, IsErrDuplicatePass(err))

	// same payload under another symbology is a different card
	dup.Barcode.Symbology = SymbologyCode128
	assert.NoError(t, w.Add(dup))
	assert.Equal(t, 2, w.Len())
}

func TestAddAsPrimaryTakesFlag(t *testing.T) {
	w := NewWallet(nil)
	require.NoError(t, w.Add(newPass(1, "a")))
	p := newPass(2, "b")
	p.IsPrimary = true
	require.NoError(t, w.Add(p))

	assert.Equal(t, []string{"p2"}, primaries(w))
}

func TestSetPrimaryLeavesExactlyOne(t *testing.T) {
	w := NewWallet(nil)
	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Add(newPass(i, fmt.Sprint(i))))
	}
	require.Equal(t, []string{"p1"}, primaries(w))

	require.NoError(t, w.SetPrimary("p2"))
	assert.Equal(t, []string{"p2"}, primaries(w))

	require.NoError(t, w.SetPrimary("p2"))
	assert.Equal(t, []string{"p2"}, primaries(w))

	err := w.SetPrimary("nope")
	assert.True(t, IsErrNotFound(err))
	assert.Equal(t, []string{"p2"}, primaries(w))
}

func TestRemovePrimaryPromotesOldest(t *testing.T) {
	w := NewWallet(nil)
	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Add(newPass(i, fmt.Sprint(i))))
	}
	require.NoError(t, w.SetPrimary("p2"))

	removed, err := w.Remove("p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", removed.ID)
	assert.Equal(t, []string{"p1"}, primaries(w))

	_, err = w.Remove("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, primaries(w))

	_, err = w.Remove("p3")
	require.NoError(t, err)
	assert.Empty(t, primaries(w))
	assert.Zero(t, w.Len())
}

func TestNewWalletRepairsExtraPrimaries(t *testing.T) {
	a, b := newPass(1, "a"), newPass(2, "b")
	a.IsPrimary, b.IsPrimary = true, true

	w := NewWallet([]Pass{b, a})
	assert.Equal(t, []string{"p1"}, primaries(w))

	c := w.Changes()
	require.Len(t, c.Put, 1)
	assert.Equal(t, "p2", c.Put[0].ID)
	assert.False(t, c.Put[0].IsPrimary)
}

func TestChanges(t *testing.T) {
	a, b := newPass(1, "a"), newPass(2, "b")
	a.IsPrimary = true
	w := NewWallet([]Pass{a, b})
	assert.True(t, w.Changes().Empty())

	require.NoError(t, w.SetPrimary("p2"))
	_, err := w.Remove("p1")
	require.NoError(t, err)

	c := w.Changes()
	assert.Equal(t, []string{"p1"}, c.Delete)
	require.Len(t, c.Put, 1)
	assert.Equal(t, "p2", c.Put[0].ID)
	assert.True(t, c.Put[0].IsPrimary)
}

func TestCheckScanner(t *testing.T) {
	assert.NoError(t, CheckScanner(ScannerAvailable))

	for _, st := range []ScannerStatus{ScannerNoAccess, ScannerNoCamera, ScannerUnavailable, ScannerNotDetermined, ""} {
		err := CheckScanner(st)
		pe, ok := AsPermissionError(err)
		require.True(t, ok, "status %q", st)
		if st == "" {
			assert.Equal(t, ScannerNotDetermined, pe.Status)
		} else {
			assert.Equal(t, st, pe.Status)
		}
	}

	err := CheckScanner("broken")
	assert.True(t, IsErrBadRequest(err))
	var pe *PermissionError
	assert.False(t, errors.As(err, &pe))
}
