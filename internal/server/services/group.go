package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/repomanager"
)

// UploadTicket tells the client where to PUT a file's content.
type UploadTicket struct {
	File      *models.GroupFile
	UploadURL string
}

// GroupService is the user-facing side of work-item groups. Create, rename
// and delete are mirrored onto the label of the same name.
type GroupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mirror      *reconcile.Mirror
	files       FileStore
	log         logging.Logger
}

func NewGroupService(db *sql.DB, m repomanager.RepositoryManager, mirror *reconcile.Mirror, files FileStore, log logging.Logger) *GroupService {
	return &GroupService{db: db, repomanager: m, mirror: mirror, files: files, log: log.With("module", "groups")}
}

func (s *GroupService) List(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.repomanager.Groups(s.db).ListActive(ctx, userID)
}

func (s *GroupService) Create(ctx context.Context, userID, name, description string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", common.ErrorValidation)
	}

	group := &models.Group{UserID: userID, Name: name, Description: description, Status: models.GroupActive}
	err := withTx(reconcile.WithGuard(ctx), s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Groups(tx).Create(ctx, group); err != nil {
			return err
		}
		return s.mirror.Dispatch(ctx, tx, reconcile.Event{Kind: reconcile.GroupCreated, UserID: userID, Name: name})
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Update renames a group and/or replaces its description. An empty name
// keeps the current one; description is replaced only when non-nil.
func (s *GroupService) Update(ctx context.Context, userID, id, name string, description *string) (*models.Group, error) {
	name = strings.TrimSpace(name)

	var group *models.Group
	err := withTx(reconcile.WithGuard(ctx), s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Groups(tx)
		var err error
		group, err = repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if group.Status != models.GroupActive {
			return common.ErrorNotFound
		}

		oldName := group.Name
		if name != "" {
			group.Name = name
		}
		if description != nil {
			group.Description = *description
		}
		if err := repo.Update(ctx, group); err != nil {
			return err
		}
		if group.Name == oldName {
			return nil
		}
		return s.mirror.Dispatch(ctx, tx, reconcile.Event{
			Kind: reconcile.GroupRenamed, UserID: userID, Name: group.Name, OldName: oldName,
		})
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Delete soft-deletes the group.
func (s *GroupService) Delete(ctx context.Context, userID, id string) error {
	return withTx(reconcile.WithGuard(ctx), s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Groups(tx)
		group, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if group.Status != models.GroupActive {
			return common.ErrorNotFound
		}
		if err := repo.SoftDelete(ctx, group.ID); err != nil {
			return err
		}
		s.log.Info(ctx, "group deleted", "user_id", userID, "name", group.Name)
		return s.mirror.Dispatch(ctx, tx, reconcile.Event{Kind: reconcile.GroupDeleted, UserID: userID, Name: group.Name})
	})
}

// AttachFile records a pending file on the group and returns a presigned
// upload URL. From then on the group no longer follows its label's deletion.
func (s *GroupService) AttachFile(ctx context.Context, userID, groupID, fileName string) (*UploadTicket, error) {
	fileName = path.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, fmt.Errorf("%w: file name is required", common.ErrorValidation)
	}

	group, err := s.activeGroup(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	key := storageKey(userID, group.ID)
	url, err := s.files.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	file := &models.GroupFile{GroupID: group.ID, UserID: userID, FileName: fileName, StorageKey: key}
	if err := s.repomanager.GroupFiles(s.db).Create(ctx, file); err != nil {
		return nil, err
	}
	return &UploadTicket{File: file, UploadURL: url}, nil
}

// CompleteUpload marks a pending file as uploaded.
func (s *GroupService) CompleteUpload(ctx context.Context, userID, groupID, fileID string) error {
	files, err := s.ListFiles(ctx, userID, groupID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.ID == fileID {
			return s.repomanager.GroupFiles(s.db).MarkUploaded(ctx, fileID)
		}
	}
	return common.ErrorNotFound
}

func (s *GroupService) ListFiles(ctx context.Context, userID, groupID string) ([]*models.GroupFile, error) {
	group, err := s.activeGroup(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	return s.repomanager.GroupFiles(s.db).ListByGroup(ctx, group.ID)
}

// DownloadURL returns a presigned GET URL for one of the group's files.
func (s *GroupService) DownloadURL(ctx context.Context, userID, groupID, fileID string) (string, error) {
	files, err := s.ListFiles(ctx, userID, groupID)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.ID == fileID {
			return s.files.PresignGet(ctx, f.StorageKey)
		}
	}
	return "", common.ErrorNotFound
}

func (s *GroupService) activeGroup(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.repomanager.Groups(s.db).GetByID(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupActive {
		return nil, common.ErrorNotFound
	}
	return group, nil
}
