package app

import (
	"context"
	"encoding/base64"
)

// ObjectData carries a fetched server object to the frontend, body base64
// encoded for the JS bridge.
type ObjectData struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// FetchObject retrieves game media by object id. With force_offline set, only
// the on-disk cache is consulted.
func (a *App) FetchObject(objectID string) *ObjectData {
	obj, err := a.client.FetchObject(context.Background(), objectID, a.cfg.ForceOffline())
	if err != nil {
		a.log.Warn("failed to fetch object", "object", objectID, "error", err)
		return nil
	}
	return &ObjectData{
		ContentType: obj.ContentType,
		Body:        base64.StdEncoding.EncodeToString(obj.Body),
	}
}
