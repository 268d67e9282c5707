package contracts

// ABI declarations for every external contract the gateway talks to.
// These are the only call surfaces the registry will accept.

const erc20ABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]}
]`

const vaultABI = `[
  {"type":"function","name":"sharePrice","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"shares","type":"uint256"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]},
  {"type":"event","name":"Deposit","inputs":[{"indexed":true,"name":"user","type":"address"},{"indexed":false,"name":"assets","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}]},
  {"type":"event","name":"Withdraw","inputs":[{"indexed":true,"name":"user","type":"address"},{"indexed":false,"name":"shares","type":"uint256"},{"indexed":false,"name":"assets","type":"uint256"}]}
]`

const goalComponents = `[
  {"name":"goalId","type":"uint256"},
  {"name":"goalType","type":"uint8"},
  {"name":"targetAmount","type":"uint256"},
  {"name":"totalSaved","type":"uint256"},
  {"name":"targetDate","type":"uint256"},
  {"name":"monthlyCommitment","type":"uint256"},
  {"name":"startDate","type":"uint256"},
  {"name":"isActive","type":"bool"},
  {"name":"isCompleted","type":"bool"},
  {"name":"isPaused","type":"bool"},
  {"name":"customName","type":"string"}
]`

const savingsABI = `[
  {"type":"function","name":"createGoal","stateMutability":"nonpayable","inputs":[
    {"name":"_type","type":"uint8"},
    {"name":"_targetAmount","type":"uint256"},
    {"name":"_targetDate","type":"uint256"},
    {"name":"_monthlyCommitment","type":"uint256"},
    {"name":"_customName","type":"string"}],"outputs":[]},
  {"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[
    {"name":"goalId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
    {"name":"goalId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"pauseGoal","stateMutability":"nonpayable","inputs":[{"name":"goalId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"resumeGoal","stateMutability":"nonpayable","inputs":[{"name":"goalId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimProfit","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"fundProfitPool","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getActiveGoals","stateMutability":"view","inputs":[{"name":"user","type":"address"}],
    "outputs":[{"type":"tuple[]","components":` + goalComponents + `}]},
  {"type":"function","name":"getCompletedGoals","stateMutability":"view","inputs":[{"name":"user","type":"address"}],
    "outputs":[{"type":"tuple[]","components":` + goalComponents + `}]},
  {"type":"function","name":"userStats","stateMutability":"view","inputs":[{"name":"user","type":"address"}],
    "outputs":[{"type":"tuple","components":[
      {"name":"totalDeposited","type":"uint256"},
      {"name":"totalWithdrawn","type":"uint256"},
      {"name":"streakMonths","type":"uint256"},
      {"name":"lastDepositTime","type":"uint256"},
      {"name":"profitShareClaimed","type":"uint256"}]}]},
  {"type":"function","name":"earned","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"getTVL","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"getTotalUsers","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"event","name":"GoalCreated","inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"goalType","type":"uint8","indexed":false},
    {"name":"targetAmount","type":"uint256","indexed":false},
    {"name":"name","type":"string","indexed":false}]},
  {"type":"event","name":"Deposited","inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"goalId","type":"uint256","indexed":false}]},
  {"type":"event","name":"Withdrawn","inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"ProfitClaimed","inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"ProfitPoolFunded","inputs":[{"name":"amount","type":"uint256","indexed":false}]}
]`

const faucetABI = `[
  {"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"claimAmount","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"walletLimit","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
  {"type":"function","name":"totalClaimed","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"type":"uint256"}]}
]`
