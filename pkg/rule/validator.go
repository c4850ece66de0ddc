// Package rule 封装 go-playground/validator，与 gin 的 binding 共用同一个引擎，
// 标签名为 rule，并注册本项目的领域规则.
package rule

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TagName 结构体校验标签.
const TagName = "rule"

var (
	inst *validator.Validate
	once sync.Once

	// 检索字段名：字母或下划线开头，可带动态字段后缀
	solrFieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func initValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok && v != nil {
		inst = v
	} else {
		inst = validator.New()
	}

	inst.SetTagName(TagName)
	inst.RegisterTagNameFunc(fieldName)

	mustRegister("solrfield", isSolrField)
	mustRegister("ratelimitkey", isRateLimitKey)
	inst.RegisterAlias("visibility", "oneof=open authenticated restricted")
	inst.RegisterAlias("access", "oneof=read edit")
}

func mustRegister(tag string, fn validator.Func) {
	if err := inst.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("rule: register %s: %v", tag, err))
	}
}

// fieldName 错误里使用对外可见的名字：json、form、mapstructure 依次回退.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "mapstructure"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return f.Name
}

func isSolrField(fl validator.FieldLevel) bool {
	return solrFieldRe.MatchString(fl.Field().String())
}

func isRateLimitKey(fl validator.FieldLevel) bool {
	key := strings.ToLower(strings.TrimSpace(fl.Field().String()))

	switch key {
	case "global", "ip", "user":
		return true
	}

	name, ok := strings.CutPrefix(key, "header:")

	return ok && name != ""
}

// Engine 返回全局实例.
func Engine() *validator.Validate {
	once.Do(initValidator)

	return inst
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	return Engine().RegisterValidation(tag, fn, opts...)
}

// RegisterAlias 注册规则别名.
func RegisterAlias(alias, rules string) {
	Engine().RegisterAlias(alias, rules)
}

// ValidateStruct 完整校验结构体，错误可交给 Errors 展开.
func ValidateStruct(s any) error {
	return Engine().Struct(s)
}

// ValidateVar 按规则校验单个值，例如 ValidateVar("abc", "required,solrfield").
func ValidateVar(field any, tag string) error {
	return Engine().Var(field, tag)
}

// ValidationErrors 字段路径到可读信息.
type ValidationErrors map[string]string

// Errors 展开校验错误；不是校验错误时返回 nil.
func Errors(err error) ValidationErrors {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	out := make(ValidationErrors, len(ve))

	for _, fe := range ve {
		key := fe.Namespace()
		// 去掉顶层结构体名
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}

		out[key] = describe(fe)
	}

	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "visibility":
		return "must be one of: open authenticated restricted"
	case "access":
		return "must be one of: read edit"
	case "solrfield":
		return "is not a valid search field name"
	case "ratelimitkey":
		return "must be global, ip, user or header:<Name>"
	default:
		return "failed rule " + fe.Tag()
	}
}
