// Copyright 2026 docgraph Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 docgraph 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor，超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockGenerator（答案生成器），支持 Builder 模式与错误注入，
    记录收到的每个 generation.Request
  - testutil/fixtures: 文档分解样例（AnnualReport、TwoPageReport），
    用于入库、图查询与端到端测试

# 使用示例

	ctx := testutil.TestContext(t)
	gen := mocks.NewMockGenerator().WithAnswer("Europe led revenue.")
	summary, err := ingestor.Process(ctx, "u", fixtures.AnnualReport())
*/
package testutil
