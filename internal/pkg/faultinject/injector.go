// Package faultinject 提供基于 CEL 表达式的故障注入判定。
// 协作方服务（库存、定价）用它决定是否对某次请求注入失败或延迟，
// 表达式来自环境变量，无需改代码就能演练熔断与重试路径。
package faultinject

import (
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Injector 评估一条 CEL 规则，决定某个请求是否触发注入的故障。
type Injector struct {
	program cel.Program
	delay   time.Duration
}

// New 编译 expr 并返回 Injector。
// 表达式可引用 sku (string) 和 quantity (int)，例如：
//
//	sku == "sku-faulty" && quantity > 10
//
// expr 为空时返回 nil Injector，表示不注入任何故障。
func New(expr string, delay time.Duration) (*Injector, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("sku", cel.StringType),
		cel.Variable("quantity", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrap(issues.Err(), "compile fault expression")
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.Errorf("fault expression must be boolean, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build cel program")
	}

	return &Injector{program: program, delay: delay}, nil
}

// Match 判断请求是否命中注入规则。命中时先睡掉配置的延迟再返回 true。
// 规则评估出错按未命中处理，故障注入永远不能成为故障本身。
func (inj *Injector) Match(sku string, quantity int) bool {
	if inj == nil {
		return false
	}

	out, _, err := inj.program.Eval(map[string]interface{}{
		"sku":      sku,
		"quantity": quantity,
	})
	if err != nil {
		return false
	}

	hit, ok := out.Value().(bool)
	if !ok || !hit {
		return false
	}

	if inj.delay > 0 {
		time.Sleep(inj.delay)
	}
	return true
}
