package dataset

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"reliability-insights/internal/analytics"
)

// modelFile YAML описание линейной модели RUL, коэффициенты по именам колонок
type modelFile struct {
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
}

// ReadLinearModel читает коэффициенты модели RUL из YAML файла
func ReadLinearModel(path string, windows []int) (analytics.LinearModel, error) {
	f, err := openArtifact(path, "")
	if err != nil {
		return analytics.LinearModel{}, err
	}
	defer f.Close()
	return DecodeLinearModel(f, path, windows)
}

// DecodeLinearModel раскладывает коэффициенты в порядке колонок таблицы признаков.
// Колонка без коэффициента получает ноль, неизвестная колонка считается ошибкой.
func DecodeLinearModel(r io.Reader, path string, windows []int) (analytics.LinearModel, error) {
	var mf modelFile
	if err := yaml.NewDecoder(r).Decode(&mf); err != nil {
		return analytics.LinearModel{}, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(windows) == 0 {
		windows = analytics.DefaultWindows
	}

	// порядок совпадает с models.FeatureRow.Vector
	cols := FeatureColumns(windows)
	cols = cols[2 : len(cols)-1]

	model := analytics.LinearModel{
		Intercept:    mf.Intercept,
		Coefficients: make([]float64, len(cols)),
	}
	known := make(map[string]bool, len(cols))
	for i, col := range cols {
		model.Coefficients[i] = mf.Coefficients[col]
		known[col] = true
	}
	for col := range mf.Coefficients {
		if !known[col] {
			return analytics.LinearModel{}, fmt.Errorf("model %s: unknown feature %q", path, col)
		}
	}
	return model, nil
}
