package service

import (
	"context"
	"errors"
	"testing"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clinica-estetica/internal/dto"
	"clinica-estetica/internal/model"
)

func setupTestUserService() (UserService, *testRepos) {
	repos := newTestRepos()
	repos.doctor.doctors["doc-1"] = &model.Doctor{DoctorID: "doc-1", FirstName: "Ana", LastName: "López", IsActive: true}
	return NewUserService(repos.repo, zap.NewNop()), repos
}

// ── CreateUser ──

func TestCreateUser_Success(t *testing.T) {
	svc, repos := setupTestUserService()

	result, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "María",
		Username: "maria",
		Email:    "maria@test.com",
		Role:     model.RoleReception,
	}, "admin-1")
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}

	if len(result.TempPassword) != 10 {
		t.Errorf("临时密码长度期望 10，实际=%d", len(result.TempPassword))
	}
	if !result.User.MustChangePassword {
		t.Error("新账号应要求修改密码")
	}

	stored := repos.user.users[result.User.ID]
	if stored == nil {
		t.Fatal("用户应已写入")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(result.TempPassword)); err != nil {
		t.Error("临时密码应与存储的哈希匹配")
	}
	if stored.CreatedBy == nil || *stored.CreatedBy != "admin-1" {
		t.Error("CreatedBy 应为调用者")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc, repos := setupTestUserService()
	createTestUser(repos.user, "maria", "password123", model.RoleReception)

	_, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "Otra María",
		Username: "maria",
		Email:    "otra@test.com",
		Role:     model.RoleReception,
	}, "admin-1")

	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("期望 ErrUsernameExists，实际: %v", err)
	}
}

func TestCreateUser_DoctorRequiresLink(t *testing.T) {
	svc, _ := setupTestUserService()

	_, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "Dra. López",
		Username: "lopez",
		Email:    "lopez@test.com",
		Role:     model.RoleDoctor,
	}, "admin-1")

	if !errors.Is(err, ErrDoctorLinkRequired) {
		t.Errorf("期望 ErrDoctorLinkRequired，实际: %v", err)
	}
}

func TestCreateUser_DoctorLinkNotFound(t *testing.T) {
	svc, _ := setupTestUserService()

	_, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "Dra. López",
		Username: "lopez",
		Email:    "lopez@test.com",
		Role:     model.RoleDoctor,
		DoctorID: "missing",
	}, "admin-1")

	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("期望 ErrDoctorNotFound，实际: %v", err)
	}
}

func TestCreateUser_DoctorLinked(t *testing.T) {
	svc, _ := setupTestUserService()

	result, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "Dra. López",
		Username: "lopez",
		Email:    "lopez@test.com",
		Role:     model.RoleDoctor,
		DoctorID: "doc-1",
	}, "admin-1")
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if result.User.Doctor == nil || result.User.Doctor.ID != "doc-1" {
		t.Error("期望关联医生 doc-1")
	}
}

func TestCreateUser_NonDoctorDropsLink(t *testing.T) {
	svc, repos := setupTestUserService()

	result, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Name:     "Admin",
		Username: "admin2",
		Email:    "admin2@test.com",
		Role:     model.RoleAdmin,
		DoctorID: "doc-1",
	}, "admin-1")
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if repos.user.users[result.User.ID].DoctorID != nil {
		t.Error("非医生角色不应保留医生关联")
	}
}

// ── List ──

func TestListUsers_FilterByRole(t *testing.T) {
	svc, repos := setupTestUserService()
	createTestUser(repos.user, "a", "password123", model.RoleAdmin)
	createTestUser(repos.user, "b", "password123", model.RoleReception)
	createTestUser(repos.user, "c", "password123", model.RoleReception)

	list, total, err := svc.List(context.Background(), &dto.UserListRequest{Role: model.RoleReception})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Errorf("期望 2 个前台账号，实际 total=%d len=%d", total, len(list))
	}
}

// ── Update ──

func TestUpdateUser_SelfRoleChange(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(repos.user, "admin", "password123", model.RoleAdmin)

	role := model.RoleReception
	_, err := svc.Update(context.Background(), user.UserID, &dto.UpdateUserRequest{Role: &role}, user.UserID)

	if !errors.Is(err, ErrUserSelfRoleChange) {
		t.Errorf("期望 ErrUserSelfRoleChange，实际: %v", err)
	}
}

func TestUpdateUser_PromoteToDoctor(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(repos.user, "ana", "password123", model.RoleReception)

	role := model.RoleDoctor
	doctorID := "doc-1"
	result, err := svc.Update(context.Background(), user.UserID, &dto.UpdateUserRequest{Role: &role, DoctorID: &doctorID}, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.Role != model.RoleDoctor {
		t.Errorf("期望 Role=doctor，实际=%s", result.Role)
	}
	if result.Doctor == nil || result.Doctor.ID != "doc-1" {
		t.Error("期望关联医生 doc-1")
	}
}

func TestUpdateUser_Deactivate(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(repos.user, "ana", "password123", model.RoleReception)

	inactive := false
	result, err := svc.Update(context.Background(), user.UserID, &dto.UpdateUserRequest{IsActive: &inactive}, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.IsActive {
		t.Error("期望账号已停用")
	}
}

// ── Delete ──

func TestDeleteUser_Self(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(repos.user, "admin", "password123", model.RoleAdmin)

	if err := svc.Delete(context.Background(), user.UserID, user.UserID); !errors.Is(err, ErrUserSelfDelete) {
		t.Errorf("期望 ErrUserSelfDelete，实际: %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	svc, _ := setupTestUserService()

	if err := svc.Delete(context.Background(), "missing", "admin-1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestDeleteUser_Success(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(repos.user, "ana", "password123", model.RoleReception)

	if err := svc.Delete(context.Background(), user.UserID, "admin-1"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := repos.user.users[user.UserID]; ok {
		t.Error("用户应已删除")
	}
}

// ── ResetPassword ──

func TestResetPassword(t *testing.T) {
	svc, repos := setupTestUserService()
	user := createTestUser(repos.user, "ana", "password123", model.RoleReception)

	result, err := svc.ResetPassword(context.Background(), user.UserID, "admin-1")
	if err != nil {
		t.Fatalf("ResetPassword 应成功: %v", err)
	}

	stored := repos.user.users[user.UserID]
	if !stored.MustChangePassword {
		t.Error("重置后应要求修改密码")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(result.TempPassword)); err != nil {
		t.Error("新临时密码应与哈希匹配")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")) == nil {
		t.Error("旧密码应失效")
	}
}

func TestGenerateTempPassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		pwd, err := generateTempPassword(10)
		if err != nil {
			t.Fatalf("generateTempPassword 失败: %v", err)
		}
		if len(pwd) != 10 {
			t.Fatalf("期望长度 10，实际=%d", len(pwd))
		}

		var hasLetter, hasDigit bool
		for _, r := range pwd {
			if unicode.IsLetter(r) {
				hasLetter = true
			}
			if unicode.IsDigit(r) {
				hasDigit = true
			}
		}
		if !hasLetter || !hasDigit {
			t.Errorf("临时密码 %q 应同时包含字母和数字", pwd)
		}
	}
}

// ── BootstrapAdmin ──

func TestBootstrapAdmin(t *testing.T) {
	repos := newTestRepos()
	ctx := context.Background()

	user, err := BootstrapAdmin(ctx, repos.repo, "Administración", "admin", "admin@clinica.test", "Clinica2030")
	if err != nil {
		t.Fatalf("BootstrapAdmin 应成功: %v", err)
	}
	if user.Role != model.RoleAdmin || user.MustChangePassword {
		t.Errorf("管理员账号属性不符: %+v", user)
	}
	stored := repos.user.users[user.ID]
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Clinica2030")) != nil {
		t.Error("密码哈希应可校验")
	}

	if _, err := BootstrapAdmin(ctx, repos.repo, "Otra", "admin", "x@clinica.test", "Clinica2030"); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("重复用户名应返回 ErrUsernameExists，实际: %v", err)
	}
	if _, err := BootstrapAdmin(ctx, repos.repo, "Débil", "weak", "w@clinica.test", "corta"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("弱密码应返回 ErrWeakPassword，实际: %v", err)
	}
}
