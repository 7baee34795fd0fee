package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	pkgerrors "clinica-estetica/pkg/errors"
)

// PostgreSQL SQLSTATE
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// translateError 将驱动层约束错误转换为业务可识别的错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return pkgerrors.ErrBookingOverlap
		case pgUniqueViolation:
			return pkgerrors.ErrDuplicateKey
		}
	}
	return err
}

// keywordPattern 构造 ILIKE 模糊匹配模式
func keywordPattern(keyword string) string {
	return "%" + keyword + "%"
}
