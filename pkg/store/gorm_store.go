package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"negociasmart/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &CaseModel{}, &SessionModel{}, &MessageModel{}, &ScoreModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user profile.
func (s *GormStore) SaveUser(u domain.UserProfile) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "tier", "cases_count"}),
	}).Create(&model).Error
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id string) (domain.UserProfile, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.UserProfile, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return userFromModel(model), true, nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveCase stores or updates a case.
func (s *GormStore) SaveCase(c domain.Case) error {
	model, err := caseToModel(c)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "current_role", "current_salary", "target_salary", "currency_code", "achievements", "negotiation_date", "plan"}),
	}).Create(&model).Error
}

// GetCase retrieves a case.
func (s *GormStore) GetCase(id string) (domain.Case, bool, error) {
	var model CaseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Case{}, false, nil
		}
		return domain.Case{}, false, err
	}
	c, err := caseFromModel(model)
	if err != nil {
		return domain.Case{}, false, err
	}
	return c, true, nil
}

// ListCasesByUser returns cases ordered by creation.
func (s *GormStore) ListCasesByUser(userID string) ([]domain.Case, error) {
	var models []CaseModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Case, 0, len(models))
	for _, m := range models {
		c, err := caseFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

// CountCasesByUser returns the user's case count.
func (s *GormStore) CountCasesByUser(userID string) (int, error) {
	var count int64
	if err := s.db.Model(&CaseModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// AttachPlan replaces the case's plan column.
func (s *GormStore) AttachPlan(caseID string, plan domain.NegotiationPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.db.Model(&CaseModel{}).
		Where("id = ?", caseID).
		Update("plan", datatypes.JSON(payload)).Error
}

// SaveSession stores or updates a session.
func (s *GormStore) SaveSession(sess domain.Session) error {
	model := sessionToModel(sess)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"turn_count", "completed"}),
	}).Create(&model).Error
}

// GetSession retrieves a session.
func (s *GormStore) GetSession(id string) (domain.Session, bool, error) {
	var model SessionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// ListSessionsByCase returns sessions ordered by creation.
func (s *GormStore) ListSessionsByCase(caseID string) ([]domain.Session, error) {
	var models []SessionModel
	if err := s.db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Session, 0, len(models))
	for _, m := range models {
		res = append(res, sessionFromModel(m))
	}
	return res, nil
}

// CountSessionsByCase returns the case's session count.
func (s *GormStore) CountSessionsByCase(caseID string) (int, error) {
	var count int64
	if err := s.db.Model(&SessionModel{}).Where("case_id = ?", caseID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SetSessionProgress updates turn count and the one-way completed flag.
func (s *GormStore) SetSessionProgress(id string, turnCount int, completed bool) error {
	updates := map[string]any{"turn_count": turnCount}
	if completed {
		updates["completed"] = true
	}
	return s.db.Model(&SessionModel{}).Where("id = ?", id).Updates(updates).Error
}

// AppendMessage records a transcript message.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	return s.db.Create(&model).Error
}

// ListMessages returns the transcript in chronological order.
func (s *GormStore) ListMessages(sessionID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

// SaveScore upserts the session's score payload.
func (s *GormStore) SaveScore(sessionID string, score domain.Score) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	model := ScoreModel{
		SessionID: sessionID,
		Payload:   datatypes.JSON(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&model).Error
}

// GetScore returns the stored score when present.
func (s *GormStore) GetScore(sessionID string) (domain.Score, bool, error) {
	var model ScoreModel
	if err := s.db.First(&model, "session_id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Score{}, false, nil
		}
		return domain.Score{}, false, err
	}
	var score domain.Score
	if err := json.Unmarshal(model.Payload, &score); err != nil {
		return domain.Score{}, false, err
	}
	return score, true, nil
}

func userToModel(u domain.UserProfile) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Tier:         string(u.Tier),
		CasesCount:   u.CasesCount,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.UserProfile {
	return domain.UserProfile{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Tier:         domain.PlanTier(m.Tier),
		CasesCount:   m.CasesCount,
		CreatedAt:    m.CreatedAt,
	}
}

func caseToModel(c domain.Case) (CaseModel, error) {
	model := CaseModel{
		ID:              c.ID,
		UserID:          c.UserID,
		Title:           c.Title,
		CurrentRole:     c.CurrentRole,
		CurrentSalary:   c.CurrentSalary,
		TargetSalary:    c.TargetSalary,
		CurrencyCode:    c.CurrencyCode,
		Achievements:    c.Achievements,
		NegotiationDate: c.NegotiationDate,
		CreatedAt:       c.CreatedAt,
	}
	if c.Plan != nil {
		payload, err := json.Marshal(c.Plan)
		if err != nil {
			return CaseModel{}, err
		}
		model.Plan = datatypes.JSON(payload)
	}
	return model, nil
}

func caseFromModel(m CaseModel) (domain.Case, error) {
	c := domain.Case{
		ID:              m.ID,
		UserID:          m.UserID,
		Title:           m.Title,
		CurrentRole:     m.CurrentRole,
		CurrentSalary:   m.CurrentSalary,
		TargetSalary:    m.TargetSalary,
		CurrencyCode:    m.CurrencyCode,
		Achievements:    m.Achievements,
		NegotiationDate: m.NegotiationDate,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Plan) > 0 {
		var plan domain.NegotiationPlan
		if err := json.Unmarshal(m.Plan, &plan); err != nil {
			return domain.Case{}, err
		}
		c.Plan = &plan
	}
	return c, nil
}

func sessionToModel(s domain.Session) SessionModel {
	return SessionModel{
		ID:         s.ID,
		CaseID:     s.CaseID,
		Persona:    string(s.Persona),
		Difficulty: s.Difficulty,
		TurnCount:  s.TurnCount,
		Completed:  s.Completed,
		CreatedAt:  s.CreatedAt,
	}
}

func sessionFromModel(m SessionModel) domain.Session {
	return domain.Session{
		ID:         m.ID,
		CaseID:     m.CaseID,
		Persona:    domain.Persona(m.Persona),
		Difficulty: m.Difficulty,
		TurnCount:  m.TurnCount,
		Completed:  m.Completed,
		CreatedAt:  m.CreatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
