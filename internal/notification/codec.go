package notification

import (
	"time"

	"inventoryHub/internal/timestamp"
)

// decodeDocument builds a Notification from raw document data. Documents
// written by older clients carry ISO strings or epoch numbers in timestamp
// fields, so every time goes through the timestamp normalizer instead of
// strict struct decoding.
func decodeDocument(id string, data map[string]any) *Notification {
	return &Notification{
		ID:               id,
		Title:            stringField(data, "title"),
		Description:      stringField(data, "description"),
		Type:             NotificationType(stringField(data, "type")),
		CreatedAt:        timestamp.ToTime(data["createdAt"]),
		UpdatedAt:        timestamp.ToTime(data["updatedAt"]),
		ExpiresAt:        expiry(data["expiresAt"]),
		TargetRoles:      stringsField(data, "targetRoles"),
		TargetBranch:     stringField(data, "targetBranch"),
		TargetDepartment: stringField(data, "targetDepartment"),
		TargetUserIDs:    stringsField(data, "targetUserIds"),
		ProvinceID:       stringField(data, "provinceId"),
		Link:             stringField(data, "link"),
		ImageURL:         stringField(data, "imageUrl"),
		ReadBy:           stringsField(data, "readBy"),
	}
}

// expiry does not fall back to now: a document without a usable expiry is
// treated as already expired.
func expiry(value any) time.Time {
	t, ok := timestamp.Deserialize(value)
	if !ok {
		return time.Time{}
	}
	return t
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringsField(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		// legacy single-role documents
		if v != "" {
			return []string{v}
		}
	}
	return nil
}
