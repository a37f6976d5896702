package core

import (
	"github.com/jo-hoe/imgdrop/internal/gallery"
)

// PendingView is the serializable state of one selected file.
type PendingView struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Preview   string `json:"preview,omitempty"`
	Progress  int    `json:"progress"`
	ResultURL string `json:"resultUrl,omitempty"`
	Failed    bool   `json:"failed"`
}

type Snapshot struct {
	Pending   []PendingView        `json:"pending"`
	Gallery   []gallery.SavedImage `json:"gallery"`
	Uploading bool                 `json:"uploading"`
	Error     string               `json:"error,omitempty"`
}

func (service *CoreService) Snapshot() Snapshot {
	items := service.queue.Items()
	pending := make([]PendingView, len(items))
	for i, item := range items {
		pending[i] = PendingView{
			Index:     i,
			Name:      item.File.Name,
			MediaType: item.File.MediaType,
			Size:      item.File.Size,
			Preview:   item.Preview,
			Progress:  item.Progress,
			ResultURL: item.ResultURL,
			Failed:    item.Failed,
		}
	}
	return Snapshot{
		Pending:   pending,
		Gallery:   service.gallery.Images(),
		Uploading: service.orchestrator.Uploading(),
		Error:     service.errors.Message(),
	}
}

// Subscribe returns a channel that receives a signal after state changes.
// Signals are coalesced, so a slow reader sees at least the latest change.
// The returned function unsubscribes.
func (service *CoreService) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	service.subMu.Lock()
	id := service.nextSubID
	service.nextSubID++
	service.subscribers[id] = ch
	service.subMu.Unlock()

	return ch, func() {
		service.subMu.Lock()
		delete(service.subscribers, id)
		service.subMu.Unlock()
	}
}

func (service *CoreService) notify() {
	service.subMu.Lock()
	defer service.subMu.Unlock()
	for _, ch := range service.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
