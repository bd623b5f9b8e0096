// Package di 依赖注入容器。beego按请求反射重建controller实例，
// 构造器注入的字段不会保留，因此服务统一从这里的全局容器取。
package di

import (
	"go.uber.org/dig"
)

// Container 全局容器，启动时由bootstrap初始化
var Container *dig.Container

// InitContainer 初始化依赖注入容器
func InitContainer() *dig.Container {
	Container = dig.New()
	return Container
}

// Invoke 从容器解析依赖并执行
func Invoke(function interface{}, opts ...dig.InvokeOption) error {
	return Container.Invoke(function, opts...)
}

// Provide 注册构造器
func Provide(constructor interface{}, opts ...dig.ProvideOption) error {
	return Container.Provide(constructor, opts...)
}
