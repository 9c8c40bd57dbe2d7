// Package docs 注册 Swagger 文档，由 swag 根据 main.go 和 api 包的注解生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/api/auth/signup": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "注册",
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				}
			}
		},
		"/api/auth/login": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "登录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				}
			}
		},
		"/api/auth/refresh": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "刷新令牌",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				}
			}
		},
		"/api/auth/logout": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "退出登录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/auth/forgot-password": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "找回密码",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				}
			}
		},
		"/api/auth/reset-password": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "重置密码",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				}
			}
		},
		"/api/auth/me": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"认证"
				],
				"summary": "当前用户",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/users/profile": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"用户"
				],
				"summary": "获取个人资料",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"用户"
				],
				"summary": "修改个人资料",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/users/email": {
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"用户"
				],
				"summary": "修改邮箱",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/users/password": {
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"用户"
				],
				"summary": "修改密码",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/users/profile/picture": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"用户"
				],
				"summary": "上传头像",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"用户"
				],
				"summary": "删除头像",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/expenses": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"消费记录"
				],
				"summary": "获取消费记录列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"消费记录"
				],
				"summary": "创建消费记录",
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/expenses/{id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"消费记录"
				],
				"summary": "获取单条消费记录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"消费记录"
				],
				"summary": "更新消费记录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"消费记录"
				],
				"summary": "删除消费记录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/expenses/{id}/receipt": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"消费记录"
				],
				"summary": "上传消费凭证",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/incomes": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"收入记录"
				],
				"summary": "获取收入记录列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"收入记录"
				],
				"summary": "创建收入记录",
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/incomes/{id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"收入记录"
				],
				"summary": "获取单条收入记录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"收入记录"
				],
				"summary": "更新收入记录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"收入记录"
				],
				"summary": "删除收入记录",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/categories": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"类别"
				],
				"summary": "获取类别列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"类别"
				],
				"summary": "创建自定义类别",
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/categories/{id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"类别"
				],
				"summary": "获取单个类别",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"类别"
				],
				"summary": "修改自定义类别",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"类别"
				],
				"summary": "删除自定义类别",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/budgets": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"预算"
				],
				"summary": "获取全部预算",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"预算"
				],
				"summary": "创建预算",
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/budgets/current": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"预算"
				],
				"summary": "当月预算",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/budgets/{year}/{month}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"预算"
				],
				"summary": "指定年月的预算",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "year",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"name": "month",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/budgets/{id}": {
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"预算"
				],
				"summary": "修改预算",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"预算"
				],
				"summary": "删除预算",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/analytics/summary": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"统计"
				],
				"summary": "月度汇总",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/analytics/trends": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"统计"
				],
				"summary": "收支趋势",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/analytics/yearly": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"统计"
				],
				"summary": "年度汇总",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/analytics/daily": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"统计"
				],
				"summary": "每日消费",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/export/csv": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"导出"
				],
				"summary": "导出 CSV",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/export/pdf": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"导出"
				],
				"summary": "导出 PDF",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/export/excel": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"导出"
				],
				"summary": "导出 Excel",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/export/report": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"导出"
				],
				"summary": "月度消费报表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/admin/users": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台管理"
				],
				"summary": "用户列表",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/admin/users/{id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台管理"
				],
				"summary": "用户详情",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/admin/users/{id}/block": {
			"put": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台管理"
				],
				"summary": "封禁/解封用户",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/admin/stats": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"后台管理"
				],
				"summary": "平台统计",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/health": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"系统"
				],
				"summary": "健康检查",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.Response"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"api.Pagination": {
			"type": "object",
			"properties": {
				"page": {
					"type": "integer"
				},
				"limit": {
					"type": "integer"
				},
				"total": {
					"type": "integer"
				},
				"totalPages": {
					"type": "integer"
				},
				"hasNextPage": {
					"type": "boolean"
				},
				"hasPrevPage": {
					"type": "boolean"
				}
			}
		},
		"api.Response": {
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"message": {
					"type": "string"
				},
				"data": {},
				"pagination": {
					"$ref": "#/definitions/api.Pagination"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "FinTrack API",
	Description:      "个人记账 API：收支记录、类别、预算、统计与导出",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
