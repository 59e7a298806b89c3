package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/lifeadmin/pkg/errors"
	"github.com/charlesng35/lifeadmin/pkg/response"
	appValidator "github.com/charlesng35/lifeadmin/pkg/validator"
)

// ruleMessages renders one failed rule; the first verb is the field path, the second the rule param.
var ruleMessages = map[string]string{
	"required": "%s is required",
	"min":      "%s must contain at least %s item(s)",
	"max":      "%s must contain at most %s item(s)",
	"uuid":     "%s must be a UUID",
}

// bindAndValidate decodes the JSON body into dest and runs the struct rules. On failure the
// 400 envelope is already written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var failures appValidator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return "invalid request payload"
	}

	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		field := f.Field
		if field == "" {
			field = "field"
		}
		if format, ok := ruleMessages[f.Tag]; ok {
			if strings.Count(format, "%s") == 2 {
				parts = append(parts, fmt.Sprintf(format, field, f.Param))
			} else {
				parts = append(parts, fmt.Sprintf(format, field))
			}
			continue
		}
		rule := f.Tag
		if f.Param != "" {
			rule += "=" + f.Param
		}
		parts = append(parts, fmt.Sprintf("%s failed validation: %s", field, rule))
	}
	return strings.Join(parts, "; ")
}

// pageQuery is the pagination and filter query shared by list endpoints.
type pageQuery struct {
	Limit  int  `form:"limit"`
	Offset int  `form:"offset"`
	Unread bool `form:"unread"`
}

// bindPage parses the list query. Out-of-range limits fall back to the default page size
// and negative offsets to zero; unparseable values are a 400.
func bindPage(c *gin.Context) (pageQuery, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid query parameters"))
		return q, false
	}
	if q.Limit <= 0 || q.Limit > maxPageSize {
		q.Limit = defaultPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q, true
}
