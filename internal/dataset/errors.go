package dataset

import (
	"errors"
	"fmt"
)

// Команды, которые заново строят артефакты
const (
	GeneratorExtract  = "reliability extract"
	GeneratorEpisodes = "reliability episodes"
	GeneratorFeatures = "reliability features"
)

// MissingArtifactError входной артефакт не найден
type MissingArtifactError struct {
	Path      string
	Generator string
}

func (e *MissingArtifactError) Error() string {
	if e.Generator == "" {
		return fmt.Sprintf("artifact %s not found", e.Path)
	}
	return fmt.Sprintf("artifact %s not found, run `%s` to generate it", e.Path, e.Generator)
}

// SchemaError в артефакте нет обязательной колонки
type SchemaError struct {
	Path   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.Path, e.Column)
}

// IsMissingArtifact проверяет, вызвана ли ошибка отсутствующим артефактом
func IsMissingArtifact(err error) bool {
	var target *MissingArtifactError
	return errors.As(err, &target)
}

// IsSchemaError проверяет, вызвана ли ошибка расхождением схемы
func IsSchemaError(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}
