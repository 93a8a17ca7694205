// Package apperrors содержит типы ошибок бизнес-логики.
// Транспортный слой по типу ошибки выбирает HTTP-статус, сами сервисы
// статусов не знают.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError некорректные входные данные: нарушенное ограничение
// называется в сообщении, никаких побочных эффектов не произошло
type ValidationError struct {
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf создаёт ошибку валидации
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError запрошенный объект не существует
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound создаёт ошибку "не найдено"
func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

// BusinessRuleError нарушение бизнес-правила: недопустимый переход статуса,
// переполнение группы, дубликат записи, нарушенный дедлайн отмены
type BusinessRuleError struct {
	Message string
	Details map[string]any
}

func (e *BusinessRuleError) Error() string { return e.Message }

// BusinessRulef создаёт ошибку бизнес-правила
func BusinessRulef(format string, args ...any) error {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}

// BusinessRule создаёт ошибку бизнес-правила со структурированными деталями
func BusinessRule(message string, details map[string]any) error {
	return &BusinessRuleError{Message: message, Details: details}
}

// ConflictError проигранная гонка с конкурентной мутацией,
// операцию можно повторить
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflictf создаёт ошибку конфликта
func Conflictf(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// PermissionError у вызывающего нет прав на операцию
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// Permissionf создаёт ошибку прав доступа
func Permissionf(format string, args ...any) error {
	return &PermissionError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsBusinessRule(err error) bool {
	var e *BusinessRuleError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsPermission(err error) bool {
	var e *PermissionError
	return errors.As(err, &e)
}
