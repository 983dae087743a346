package neo4j

import (
	"encoding/json"
	"time"

	"github.com/engram-lab/engram/pkg/domain/interfaces"
	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
)

func rowString(row interfaces.Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func rowInt64(row interfaces.Row, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// rowFloat32s converts a list property back into an embedding vector. The
// driver returns list values as []any of float64.
func rowFloat32s(row interfaces.Row, key string) []float32 {
	list, ok := row[key].([]any)
	if !ok || len(list) == 0 {
		return nil
	}

	out := make([]float32, 0, len(list))
	for _, v := range list {
		switch f := v.(type) {
		case float64:
			out = append(out, float32(f))
		case float32:
			out = append(out, f)
		}
	}
	return out
}

func float32sTo64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func rowToMessage(row interfaces.Row, userID types.UserID) *model.Message {
	msg := &model.Message{
		ID:        model.MessageID(rowString(row, "id")),
		UserID:    userID,
		SessionID: types.SessionID(rowString(row, "session_id")),
		Role:      types.Role(rowString(row, "role")),
		Content:   rowString(row, "content"),
		Embedding: rowFloat32s(row, "embedding"),
		CreatedAt: time.UnixMilli(rowInt64(row, "timestamp")).UTC(),
	}
	if meta := rowString(row, "metadata"); meta != "" {
		msg.Metadata = json.RawMessage(meta)
	}
	return msg
}

func rowsToMessages(rows []interfaces.Row, userID types.UserID) []*model.Message {
	messages := make([]*model.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, rowToMessage(row, userID))
	}
	return messages
}
