package account

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

const (
	fieldAccountID = "account_id"
	fieldClusterID = "cluster_id"
	fieldLabel     = "label"
	fieldVector    = "__vector"
)

// buildHashFields converts a domain Account into a flat map[string]string for HSET.
func buildHashFields(a domain.Account) map[string]string {
	m := map[string]string{
		fieldAccountID: a.ID.String(),
		fieldClusterID: a.ClusterID.String(),
		fieldLabel:     labelCode(a.Label),
	}
	if len(a.Embedding) > 0 {
		m[fieldVector] = vectorToBytes(a.Embedding)
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Account.
func parseHashFields(m map[string]string) (domain.Account, error) {
	id, err := domain.ParseAccountID(m[fieldAccountID])
	if err != nil {
		return domain.Account{}, err
	}
	cid, err := domain.ParseClusterID(m[fieldClusterID])
	if err != nil {
		return domain.Account{}, err
	}
	l, err := label.Parse(m[fieldLabel])
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, err)
	}

	a := domain.Account{ID: id, ClusterID: cid, Label: l}
	if raw, ok := m[fieldVector]; ok {
		a.Embedding = bytesToVector(raw)
		if a.Embedding == nil {
			return domain.Account{}, fmt.Errorf("account %s: corrupt vector of %d bytes", id, len(raw))
		}
	}
	return a, nil
}

// labelCode renders the integer code stored in the label field.
func labelCode(l label.Label) string {
	return strconv.Itoa(int(l))
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
