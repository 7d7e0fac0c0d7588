package procurement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/procuredesk/procuredesk/internal/shared"
	"github.com/procuredesk/procuredesk/internal/users"
)

// Backend is the remote persistence service holding the requests,
// request_items and request_files tables.
type Backend interface {
	ListRequests(ctx context.Context) ([]RequestRow, error)
	ListItems(ctx context.Context, requestID string) ([]ItemRow, error)
	ListFiles(ctx context.Context, requestID string) ([]FileRow, error)
	InsertRequest(ctx context.Context, row RequestRow, items []ItemRow) (RequestRow, []ItemRow, error)
	SaveRequest(ctx context.Context, req Request) error
}

// BlobStore accepts file bytes and returns a retrievable URL.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ActivityRecorder is the activity log sink.
type ActivityRecorder interface {
	Record(ctx context.Context, entry shared.Activity) error
}

// SyncQueue schedules asynchronous re-persistence of a request snapshot.
type SyncQueue interface {
	EnqueueRequestSync(ctx context.Context, op string, req Request) error
}

// UserResolver looks up users referenced by id.
type UserResolver interface {
	Get(ctx context.Context, id string) (users.User, error)
}

// MetricsRecorder receives mutation outcomes.
type MetricsRecorder interface {
	ObserveMutation(op, result string)
	ObserveSyncFailure(op string)
}

// ServiceConfig tunes the service.
type ServiceConfig struct {
	// Latency is awaited before each mutation is applied.
	Latency time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

// ServiceDeps groups optional collaborators. Nil members disable the
// corresponding integration.
type ServiceDeps struct {
	Backend  Backend
	Blob     BlobStore
	Activity ActivityRecorder
	Queue    SyncQueue
	Users    UserResolver
	Metrics  MetricsRecorder
	Logger   *slog.Logger
}

// Service orchestrates request mutations against the store.
type Service struct {
	store    *Store
	backend  Backend
	blob     BlobStore
	activity ActivityRecorder
	queue    SyncQueue
	users    UserResolver
	metrics  MetricsRecorder
	logger   *slog.Logger
	cfg      ServiceConfig
	validate *validator.Validate

	// loading is held exclusively by Load; writes hold it shared so none
	// lands in the store while the backend snapshot is being fetched.
	loading sync.RWMutex
}

// NewService constructs procurement service.
func NewService(store *Store, deps ServiceDeps, cfg ServiceConfig) *Service {
	if store == nil {
		store = NewStore()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    store,
		backend:  deps.Backend,
		blob:     deps.Blob,
		activity: deps.Activity,
		queue:    deps.Queue,
		users:    deps.Users,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// Store exposes the underlying store.
func (s *Service) Store() *Store {
	return s.store
}

// ItemInput describes a line item to add or update.
type ItemInput struct {
	ID           string   `json:"id"`
	ItemNumber   string   `json:"itemNumber" validate:"max=64"`
	Description  string   `json:"description" validate:"required,max=500"`
	QtyRequested float64  `json:"qtyRequested" validate:"gte=0"`
	QtyDelivered float64  `json:"qtyDelivered" validate:"gte=0"`
	UnitPrice    *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
}

// CreateRequestInput describes creation payload.
type CreateRequestInput struct {
	ClientID        string      `json:"clientId"`
	RFQNumber       string      `json:"rfqNumber" validate:"max=64"`
	PONumber        string      `json:"poNumber" validate:"max=64"`
	Entity          string      `json:"entity" validate:"required,max=200"`
	Description     string      `json:"description" validate:"required,max=2000"`
	Vendor          string      `json:"vendor" validate:"max=200"`
	PlaceOfDelivery string      `json:"placeOfDelivery" validate:"max=200"`
	PlaceOfArrival  string      `json:"placeOfArrival" validate:"max=200"`
	PODate          string      `json:"poDate"`
	ExpDeliveryDate string      `json:"expDeliveryDate"`
	DateDue         string      `json:"dateDue"`
	QtyRequested    float64     `json:"qtyRequested" validate:"gte=0"`
	IsPublic        bool        `json:"isPublic"`
	Items           []ItemInput `json:"items" validate:"dive"`
}

// RequestPatch enumerates every field an update may touch. Nil fields are
// left unchanged; derived fields are not patchable.
type RequestPatch struct {
	RFQNumber       *string      `json:"rfqNumber" validate:"omitempty,max=64"`
	PONumber        *string      `json:"poNumber" validate:"omitempty,max=64"`
	Entity          *string      `json:"entity" validate:"omitempty,min=1,max=200"`
	Description     *string      `json:"description" validate:"omitempty,min=1,max=2000"`
	Vendor          *string      `json:"vendor" validate:"omitempty,max=200"`
	PlaceOfDelivery *string      `json:"placeOfDelivery" validate:"omitempty,max=200"`
	PlaceOfArrival  *string      `json:"placeOfArrival" validate:"omitempty,max=200"`
	PODate          *string      `json:"poDate"`
	ExpDeliveryDate *string      `json:"expDeliveryDate"`
	DateDelivered   *string      `json:"dateDelivered"`
	MGPETA          *string      `json:"mgpEta"`
	DateDue         *string      `json:"dateDue"`
	Items           *[]ItemInput `json:"items"`
	// ExpectedVersion turns the update into a compare-and-swap.
	ExpectedVersion *int64 `json:"expectedVersion"`
}

// FileUpload carries an attachment to store.
type FileUpload struct {
	Name     string `validate:"required,max=255"`
	Type     string `validate:"max=255"`
	Size     int64  `validate:"gte=0"`
	IsPublic bool
	Body     io.Reader `validate:"-"`
}

// LoadSource tells where the store contents came from.
type LoadSource string

const (
	LoadBackend  LoadSource = "backend"
	LoadFallback LoadSource = "fallback"
	LoadNone     LoadSource = "none"
)

// Load fetches every request from the backend into the store. When the
// backend reports a missing table the static fallback dataset is used.
func (s *Service) Load(ctx context.Context) (LoadSource, error) {
	if s.backend == nil {
		return LoadNone, nil
	}
	s.loading.Lock()
	defer s.loading.Unlock()
	requests, err := s.fetchAll(ctx)
	if err != nil {
		if errors.Is(err, ErrTableMissing) {
			s.logger.Warn("requests table missing, serving fallback data", slog.Any("error", err))
			s.store.Load(FallbackRequests())
			return LoadFallback, nil
		}
		return LoadNone, fmt.Errorf("procurement: load requests: %w", err)
	}
	s.store.Load(requests)
	return LoadBackend, nil
}

func (s *Service) fetchAll(ctx context.Context) ([]Request, error) {
	rows, err := s.backend.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(rows))
	for _, row := range rows {
		items, err := s.backend.ListItems(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			items = []ItemRow{synthesizedItem(row)}
		}
		req := ToRequest(row, items)
		files, err := s.backend.ListFiles(ctx, row.ID)
		if err != nil {
			s.logger.Warn("list request files", slog.String("request_id", row.ID), slog.Any("error", err))
		} else {
			req = WithFiles(req, files)
		}
		out = append(out, req)
	}
	return out, nil
}

// GetByID returns the request if present.
func (s *Service) GetByID(id string) (Request, bool) {
	return s.store.GetByID(id)
}

// Visible returns the requests the actor may see.
func (s *Service) Visible(actor users.User) []Request {
	return VisibleTo(s.store.List(), actor)
}

// GetForActor returns a request only when it is visible to the actor.
func (s *Service) GetForActor(actor users.User, id string) (Request, error) {
	req, ok := s.store.GetByID(id)
	if !ok || !canSee(req, actor) {
		return Request{}, ErrNotFound
	}
	return req, nil
}

// CreateRequest appends a new pending request.
func (s *Service) CreateRequest(ctx context.Context, actor users.User, input CreateRequestInput) (Result, error) {
	const op = "create"
	if err := s.check(input); err != nil {
		return s.fail(op, err)
	}
	clientID, err := s.resolveClient(ctx, actor, input.ClientID)
	if err != nil {
		return s.fail(op, err)
	}
	s.loading.RLock()
	defer s.loading.RUnlock()
	now := s.cfg.Now().UTC()
	draft := Request{
		ID:              uuid.NewString(),
		RFQNumber:       input.RFQNumber,
		PONumber:        input.PONumber,
		Entity:          input.Entity,
		Description:     input.Description,
		Vendor:          input.Vendor,
		PlaceOfDelivery: input.PlaceOfDelivery,
		PlaceOfArrival:  input.PlaceOfArrival,
		PODate:          input.PODate,
		ExpDeliveryDate: input.ExpDeliveryDate,
		DateDue:         input.DateDue,
		Stage:           StageNewRequest,
		Status:          StatusPending,
		ClientID:        clientID,
		IsPublic:        input.IsPublic,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
		Files:           []File{},
	}
	if !Allowed(actor, ActionCreate, draft) {
		return s.fail(op, ErrForbidden)
	}
	// Client supplied item ids are ignored; a new request owns fresh ones.
	for _, in := range input.Items {
		draft.Items = append(draft.Items, newItem(uuid.NewString(), in))
	}
	if len(draft.Items) == 0 {
		draft.Items = []Item{{
			ID:           uuid.NewString(),
			ItemNumber:   "1",
			Description:  input.Description,
			QtyRequested: roundQuantity(input.QtyRequested),
		}}
	}
	renumberLines(draft.Items)
	recompute(&draft)

	if err := s.wait(ctx); err != nil {
		return s.fail(op, err)
	}

	created, status, syncErr := s.insertRemote(ctx, draft)
	stored := s.store.Insert(created)
	s.record(ctx, actor, op, stored, map[string]any{"reference": stored.Reference()})
	note := withSync(notifyf(NotifySuccess, "Request %s created with %s units requested.", stored.Reference(), qty(stored.QtyRequested)), status)
	return s.succeed(op, stored, status, syncErr, note), nil
}

// insertRemote persists a new request. A successful insert returns the
// server's row, which replaces the local draft.
func (s *Service) insertRemote(ctx context.Context, draft Request) (Request, SyncStatus, *SyncError) {
	if s.backend == nil {
		return draft, SyncLocal, nil
	}
	row, items, _ := ToRows(draft)
	savedRow, savedItems, err := s.backend.InsertRequest(ctx, row, items)
	if err != nil {
		return draft, SyncPending, s.syncFailed(ctx, "create", draft, err)
	}
	if len(savedItems) == 0 {
		savedItems = items
	}
	created := ToRequest(savedRow, savedItems)
	if created.ID == "" {
		created.ID = draft.ID
	}
	return created, SyncSynced, nil
}

// UpdateRequest merges the patch into an existing request.
func (s *Service) UpdateRequest(ctx context.Context, actor users.User, id string, patch RequestPatch) (Result, error) {
	const op = "update"
	if err := s.check(patch); err != nil {
		return s.fail(op, err)
	}
	if patch.Items != nil {
		if len(*patch.Items) == 0 {
			return s.fail(op, fmt.Errorf("%w: at least one item required", ErrValidation))
		}
		for _, in := range *patch.Items {
			if err := s.check(in); err != nil {
				return s.fail(op, err)
			}
		}
	}
	return s.mutate(ctx, actor, mutation{
		op:      op,
		action:  ActionUpdate,
		id:      id,
		version: patch.ExpectedVersion,
		apply: func(r *Request) error {
			return applyPatch(r, patch)
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "Request %s updated.", r.Reference())
		},
	})
}

// applyPatch merges p into r. A replacement item list may only reuse ids of
// the request's own items, each at most once; items without an id get a new
// one.
func applyPatch(r *Request, p RequestPatch) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&r.RFQNumber, p.RFQNumber)
	set(&r.PONumber, p.PONumber)
	set(&r.Entity, p.Entity)
	set(&r.Description, p.Description)
	set(&r.Vendor, p.Vendor)
	set(&r.PlaceOfDelivery, p.PlaceOfDelivery)
	set(&r.PlaceOfArrival, p.PlaceOfArrival)
	set(&r.PODate, p.PODate)
	set(&r.ExpDeliveryDate, p.ExpDeliveryDate)
	set(&r.DateDelivered, p.DateDelivered)
	set(&r.MGPETA, p.MGPETA)
	set(&r.DateDue, p.DateDue)
	if p.Items != nil {
		owned := make(map[string]bool, len(r.Items))
		for _, it := range r.Items {
			owned[it.ID] = true
		}
		seen := make(map[string]bool, len(*p.Items))
		items := make([]Item, 0, len(*p.Items))
		for _, in := range *p.Items {
			id := in.ID
			switch {
			case id == "":
				id = uuid.NewString()
			case !owned[id]:
				return fmt.Errorf("%w: item %s does not belong to request %s", ErrValidation, id, r.ID)
			case seen[id]:
				return fmt.Errorf("%w: duplicate item %s", ErrValidation, id)
			}
			seen[id] = true
			items = append(items, newItem(id, in))
		}
		renumberLines(items)
		r.Items = items
	}
	return nil
}

// AcceptRequest assigns a buyer to a pending request.
func (s *Service) AcceptRequest(ctx context.Context, actor users.User, id, buyerID string) (Result, error) {
	const op = "accept"
	if actor.Role == users.RoleBuyer {
		if buyerID == "" {
			buyerID = actor.ID
		}
		if buyerID != actor.ID {
			return s.fail(op, ErrForbidden)
		}
	}
	if buyerID == "" {
		return s.fail(op, fmt.Errorf("%w: buyer id required", ErrValidation))
	}
	if _, ok := s.store.GetByID(id); !ok {
		return s.fail(op, ErrNotFound)
	}
	if err := s.resolveRole(ctx, buyerID, users.RoleBuyer); err != nil {
		return s.fail(op, err)
	}
	return s.mutate(ctx, actor, mutation{
		op:     op,
		action: ActionAccept,
		id:     id,
		apply: func(r *Request) error {
			if r.Status != StatusPending {
				return ErrInvalidState
			}
			r.Status = StatusAccepted
			r.BuyerID = buyerID
			return nil
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "Request %s accepted.", r.Reference())
		},
		details: map[string]any{"buyer_id": buyerID},
	})
}

// DeclineRequest moves a pending request to the terminal declined status.
func (s *Service) DeclineRequest(ctx context.Context, actor users.User, id string) (Result, error) {
	return s.mutate(ctx, actor, mutation{
		op:     "decline",
		action: ActionDecline,
		id:     id,
		apply: func(r *Request) error {
			if r.Status != StatusPending {
				return ErrInvalidState
			}
			r.Status = StatusDeclined
			return nil
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "Request %s declined.", r.Reference())
		},
	})
}

// UpdateStage sets the pipeline stage. Reaching Delivered completes the
// request. Declined requests are terminal.
func (s *Service) UpdateStage(ctx context.Context, actor users.User, id string, stage Stage) (Result, error) {
	const op = "stage"
	if !stage.Valid() {
		return s.fail(op, fmt.Errorf("%w: unknown stage %q", ErrValidation, stage))
	}
	return s.mutate(ctx, actor, mutation{
		op:     op,
		action: ActionStage,
		id:     id,
		apply: func(r *Request) error {
			if r.Status == StatusDeclined {
				return ErrInvalidState
			}
			r.Stage = stage
			if stage == StageDelivered {
				r.Status = StatusCompleted
			}
			return nil
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "Request %s moved to %s.", r.Reference(), string(r.Stage))
		},
		details: map[string]any{"stage": string(stage)},
	})
}

// TogglePublicStatus flips whether clients see the request.
func (s *Service) TogglePublicStatus(ctx context.Context, actor users.User, id string) (Result, error) {
	return s.mutate(ctx, actor, mutation{
		op:     "visibility",
		action: ActionVisibility,
		id:     id,
		apply: func(r *Request) error {
			r.IsPublic = !r.IsPublic
			return nil
		},
		message: func(r Request) Notification {
			if r.IsPublic {
				return notifyf(NotifySuccess, "Request %s is now visible to the client.", r.Reference())
			}
			return notifyf(NotifySuccess, "Request %s is now hidden from the client.", r.Reference())
		},
	})
}

// ToggleFilePublic flips the visibility of a single attachment.
func (s *Service) ToggleFilePublic(ctx context.Context, actor users.User, id, fileID string) (Result, error) {
	var name string
	return s.mutate(ctx, actor, mutation{
		op:     "file_visibility",
		action: ActionFileVisible,
		id:     id,
		apply: func(r *Request) error {
			for i := range r.Files {
				if r.Files[i].ID == fileID {
					r.Files[i].IsPublic = !r.Files[i].IsPublic
					name = r.Files[i].Name
					return nil
				}
			}
			return ErrNotFound
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "Visibility of %s updated.", name)
		},
		details: map[string]any{"file_id": fileID},
	})
}

// UploadFile stores an attachment and appends its metadata. Storage failures
// fall back to a local placeholder URL.
func (s *Service) UploadFile(ctx context.Context, actor users.User, id string, upload FileUpload) (Result, error) {
	const op = "upload"
	if err := s.check(upload); err != nil {
		return s.fail(op, err)
	}
	current, ok := s.store.GetByID(id)
	if !ok {
		return s.fail(op, ErrNotFound)
	}
	if !Allowed(actor, ActionUploadFile, current) {
		return s.fail(op, ErrForbidden)
	}
	file := File{
		ID:         uuid.NewString(),
		Name:       upload.Name,
		Size:       upload.Size,
		Type:       upload.Type,
		IsPublic:   upload.IsPublic,
		UploadedAt: s.cfg.Now().UTC(),
	}
	return s.mutate(ctx, actor, mutation{
		op:     op,
		action: ActionUploadFile,
		id:     id,
		apply: func(r *Request) error {
			r.Files = append(r.Files, file)
			return nil
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "File %s uploaded to %s.", file.Name, r.Reference())
		},
		details: map[string]any{"file_id": file.ID, "name": file.Name, "size": file.Size},
		prepare: func(ctx context.Context) (func(), error) {
			var (
				undo func()
				err  error
			)
			file.URL, undo, err = s.putBlob(ctx, id, file, upload.Body)
			return undo, err
		},
	})
}

// putBlob uploads the attachment. On failure the local placeholder URL is
// returned with the error; on success the returned func removes the object
// again.
func (s *Service) putBlob(ctx context.Context, requestID string, file File, body io.Reader) (string, func(), error) {
	placeholder := "blob:local/" + file.ID
	if s.blob == nil || body == nil {
		return placeholder, nil, nil
	}
	key := path.Join("requests", requestID, file.ID, path.Base(file.Name))
	url, err := s.blob.Put(ctx, key, body, file.Size, file.Type)
	if err != nil {
		s.logger.Warn("store attachment", slog.String("request_id", requestID), slog.String("key", key), slog.Any("error", err))
		return placeholder, nil, err
	}
	undo := func() {
		if err := s.blob.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("remove orphaned attachment", slog.String("request_id", requestID), slog.String("key", key), slog.Any("error", err))
		}
	}
	return url, undo, nil
}

// AddOrUpdateRequestItem updates the item with input.ID in place or appends a
// new item at the next line number.
func (s *Service) AddOrUpdateRequestItem(ctx context.Context, actor users.User, id string, input ItemInput) (Result, error) {
	const op = "item_upsert"
	if err := s.check(input); err != nil {
		return s.fail(op, err)
	}
	var line int
	return s.mutate(ctx, actor, mutation{
		op:     op,
		action: ActionEditItem,
		id:     id,
		apply: func(r *Request) error {
			if input.ID != "" {
				for i := range r.Items {
					if r.Items[i].ID == input.ID {
						updated := newItem(input.ID, input)
						updated.Line = r.Items[i].Line
						r.Items[i] = updated
						line = updated.Line
						return nil
					}
				}
				return ErrNotFound
			}
			it := newItem(uuid.NewString(), input)
			it.Line = maxLine(r.Items) + 1
			r.Items = append(r.Items, it)
			line = it.Line
			return nil
		},
		message: func(r Request) Notification {
			if r.OverDelivered {
				return notifyf(NotifyWarning, "Line %d of %s saved. Delivered quantity exceeds requested; %s units pending.", line, r.Reference(), qty(r.QtyPending))
			}
			return notifyf(NotifySuccess, "Line %d of %s saved; %s units pending.", line, r.Reference(), qty(r.QtyPending))
		},
		details: map[string]any{"item_id": input.ID},
	})
}

// DeleteRequestItem removes an item and recompacts line numbers. The last
// remaining item cannot be removed.
func (s *Service) DeleteRequestItem(ctx context.Context, actor users.User, id, itemID string) (Result, error) {
	return s.mutate(ctx, actor, mutation{
		op:     "item_delete",
		action: ActionDeleteItem,
		id:     id,
		apply: func(r *Request) error {
			idx := -1
			for i := range r.Items {
				if r.Items[i].ID == itemID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return ErrNotFound
			}
			if len(r.Items) == 1 {
				return ErrLastItem
			}
			r.Items = append(r.Items[:idx], r.Items[idx+1:]...)
			renumberLines(r.Items)
			return nil
		},
		message: func(r Request) Notification {
			return notifyf(NotifySuccess, "Item removed from %s; %d items remain.", r.Reference(), len(r.Items))
		},
		details: map[string]any{"item_id": itemID},
	})
}

type mutation struct {
	op      string
	action  Action
	id      string
	version *int64
	apply   func(*Request) error
	message func(Request) Notification
	details map[string]any
	// prepare runs after the latency wait and before the store apply. Its
	// error is reported as a sync failure without aborting the mutation; the
	// returned undo runs when the apply is rejected.
	prepare func(context.Context) (undo func(), err error)
}

// mutate runs the shared contract: existence and permission checks, the
// configured latency, an atomic apply on the store, remote persistence,
// activity logging and a single notification.
func (s *Service) mutate(ctx context.Context, actor users.User, m mutation) (Result, error) {
	s.loading.RLock()
	defer s.loading.RUnlock()
	current, ok := s.store.GetByID(m.id)
	if !ok {
		return s.fail(m.op, ErrNotFound)
	}
	if !Allowed(actor, m.action, current) {
		return s.fail(m.op, ErrForbidden)
	}
	if err := s.wait(ctx); err != nil {
		return s.fail(m.op, err)
	}
	var (
		undo    func()
		prepErr error
	)
	if m.prepare != nil {
		undo, prepErr = m.prepare(ctx)
	}
	now := s.cfg.Now().UTC()
	apply := func(r *Request) error {
		if !Allowed(actor, m.action, *r) {
			return ErrForbidden
		}
		if err := m.apply(r); err != nil {
			return err
		}
		recompute(r)
		r.UpdatedAt = now
		return nil
	}
	var (
		updated Request
		err     error
	)
	if m.version != nil {
		updated, err = s.store.CompareAndSwap(m.id, *m.version, apply)
	} else {
		updated, err = s.store.Mutate(m.id, apply)
	}
	if err != nil {
		if undo != nil {
			undo()
		}
		return s.fail(m.op, err)
	}
	status, syncErr := s.persist(ctx, m.op, updated)
	if prepErr != nil && syncErr == nil {
		status = SyncPending
		syncErr = &SyncError{Op: m.op, RequestID: updated.ID, Err: prepErr}
	}
	s.record(ctx, actor, m.op, updated, m.details)
	note := withSync(m.message(updated), status)
	return s.succeed(m.op, updated, status, syncErr, note), nil
}

func (s *Service) persist(ctx context.Context, op string, req Request) (SyncStatus, *SyncError) {
	if s.backend == nil {
		return SyncLocal, nil
	}
	if err := s.backend.SaveRequest(ctx, req); err != nil {
		return SyncPending, s.syncFailed(ctx, op, req, err)
	}
	return SyncSynced, nil
}

// syncFailed logs a remote failure and hands the snapshot to the
// reconciliation queue. Missing tables and superseded snapshots are not
// queued.
func (s *Service) syncFailed(ctx context.Context, op string, req Request, cause error) *SyncError {
	s.logger.Warn("persist request", slog.String("op", op), slog.String("request_id", req.ID), slog.Any("error", cause))
	if s.metrics != nil {
		s.metrics.ObserveSyncFailure(op)
	}
	syncErr := &SyncError{Op: op, RequestID: req.ID, Err: cause}
	if s.queue == nil || errors.Is(cause, ErrTableMissing) || errors.Is(cause, ErrSuperseded) {
		return syncErr
	}
	if err := s.queue.EnqueueRequestSync(ctx, op, req); err != nil {
		s.logger.Error("enqueue request sync", slog.String("request_id", req.ID), slog.Any("error", err))
		return syncErr
	}
	syncErr.Queued = true
	return syncErr
}

func (s *Service) record(ctx context.Context, actor users.User, op string, req Request, details map[string]any) {
	if s.activity == nil {
		return
	}
	entry := shared.Activity{
		UserID:     actor.ID,
		UserName:   actor.Name,
		Role:       string(actor.Role),
		Action:     op,
		EntityType: "request",
		EntityID:   req.ID,
		Details:    details,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn("record activity", slog.String("action", op), slog.String("request_id", req.ID), slog.Any("error", err))
	}
}

func (s *Service) succeed(op string, req Request, status SyncStatus, syncErr *SyncError, note Notification) Result {
	if s.metrics != nil {
		s.metrics.ObserveMutation(op, string(status))
	}
	return Result{Request: req, Sync: status, SyncErr: syncErr, Notification: note}
}

func (s *Service) fail(op string, err error) (Result, error) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(op, "rejected")
	}
	return Result{Notification: FailureNotification(err)}, err
}

func (s *Service) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.cfg.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) resolveClient(ctx context.Context, actor users.User, clientID string) (string, error) {
	switch actor.Role {
	case users.RoleClient:
		if clientID != "" && clientID != actor.ID {
			return "", ErrForbidden
		}
		return actor.ID, nil
	case users.RoleAdmin:
		if clientID == "" {
			return "", fmt.Errorf("%w: client id required", ErrValidation)
		}
		if err := s.resolveRole(ctx, clientID, users.RoleClient); err != nil {
			return "", err
		}
		return clientID, nil
	default:
		return "", ErrForbidden
	}
}

// resolveRole checks that id names a user with the given role. Without a
// resolver any id is accepted.
func (s *Service) resolveRole(ctx context.Context, id string, role users.Role) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return fmt.Errorf("%w: unknown user %s", ErrValidation, id)
		}
		return err
	}
	if user.Role != role {
		return fmt.Errorf("%w: user %s is not a %s", ErrValidation, id, role)
	}
	return nil
}

// newItem builds an item from input under the given id. Quantities and price
// are rounded to the scale the backend stores.
func newItem(id string, in ItemInput) Item {
	it := Item{
		ID:           id,
		ItemNumber:   in.ItemNumber,
		Description:  in.Description,
		QtyRequested: roundQuantity(in.QtyRequested),
		QtyDelivered: roundQuantity(in.QtyDelivered),
	}
	if in.UnitPrice != nil {
		p := roundQuantity(*in.UnitPrice)
		it.UnitPrice = &p
	}
	return it
}
